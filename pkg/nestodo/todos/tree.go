package todos

import (
	"errors"

	"github.com/nestodo/nestodo/pkg/nestodo/models"
	"gorm.io/gorm"
)

// ErrParentCycle is returned when a todo's parent chain revisits a node.
// Parent assignment is not cycle-checked on write, so traversal keeps a
// visited set instead of trusting the chain to terminate.
var ErrParentCycle = errors.New("todo parent chain contains a cycle")

// Ancestors returns the parent chain of a todo ordered from the tree root
// down to its immediate parent. A root todo has no ancestors. A dangling
// parent reference ends the walk at the last resolvable node.
func Ancestors(db *gorm.DB, todo *models.Todo) ([]models.Todo, error) {
	chain := []models.Todo{}
	visited := map[uint]bool{todo.ID: true}

	parentID := todo.ParentID
	for parentID != nil {
		if visited[*parentID] {
			return nil, ErrParentCycle
		}
		var parent models.Todo
		if err := db.First(&parent, *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return nil, err
		}
		visited[parent.ID] = true
		chain = append(chain, parent)
		parentID = parent.ParentID
	}

	// Walked child-to-root; callers want root first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Root returns the root of the tree a todo belongs to: the first ancestor,
// or the todo itself when it has no parent.
func Root(db *gorm.DB, todo *models.Todo) (*models.Todo, error) {
	ancestors, err := Ancestors(db, todo)
	if err != nil {
		return nil, err
	}
	if len(ancestors) == 0 {
		return todo, nil
	}
	return &ancestors[0], nil
}

// DescendantIDs collects the IDs of every todo transitively nested under
// the given todo, breadth-first. The visited set guards against malformed
// parent chains the same way Ancestors does.
func DescendantIDs(db *gorm.DB, rootID uint) ([]uint, error) {
	var ids []uint
	visited := map[uint]bool{rootID: true}
	queue := []uint{rootID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		var childIDs []uint
		if err := db.Model(&models.Todo{}).Where("parent_id = ?", id).Pluck("id", &childIDs).Error; err != nil {
			return nil, err
		}
		for _, childID := range childIDs {
			if visited[childID] {
				continue
			}
			visited[childID] = true
			ids = append(ids, childID)
			queue = append(queue, childID)
		}
	}
	return ids, nil
}

// deleteSubtree removes a todo and all of its descendants. Run inside a
// transaction so the cascade is all-or-nothing.
func deleteSubtree(tx *gorm.DB, todo *models.Todo) error {
	ids, err := DescendantIDs(tx, todo.ID)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := tx.Delete(&models.Todo{}, ids).Error; err != nil {
			return err
		}
	}
	return tx.Delete(todo).Error
}
