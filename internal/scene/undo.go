package scene

// DefaultUndoLevels bounds the undo journal of a new graph.
const DefaultUndoLevels = 64

// Change is one journaled key/value write.
type Change struct {
	Entity *Entity
	Key    string
	Old    string
	HadOld bool
	New    string
}

// UndoSystem records entity key/value changes for undo and redo.
// Undo and redo bypass the entity read-only flag, which guards script writes only.
type UndoSystem struct {
	maxLevels int
	undo      []Change
	redo      []Change
}

// NewUndoSystem returns a journal keeping at most maxLevels steps.
// maxLevels <= 0 disables journaling.
func NewUndoSystem(maxLevels int) *UndoSystem {
	return &UndoSystem{maxLevels: maxLevels}
}

// SetMaxLevels changes the bound, discarding the oldest steps if needed.
func (u *UndoSystem) SetMaxLevels(n int) {
	u.maxLevels = n
	u.trim()
}

// Size returns the number of undoable steps.
func (u *UndoSystem) Size() int { return len(u.undo) }

// RedoSize returns the number of redoable steps.
func (u *UndoSystem) RedoSize() int { return len(u.redo) }

// Undo reverts the most recent change and reports whether one existed.
func (u *UndoSystem) Undo() bool {
	if len(u.undo) == 0 {
		return false
	}
	c := u.undo[len(u.undo)-1]
	u.undo = u.undo[:len(u.undo)-1]
	if c.HadOld {
		c.Entity.apply(c.Key, c.Old)
	} else {
		c.Entity.apply(c.Key, "")
	}
	u.redo = append(u.redo, c)
	return true
}

// Redo re-applies the most recently undone change.
func (u *UndoSystem) Redo() bool {
	if len(u.redo) == 0 {
		return false
	}
	c := u.redo[len(u.redo)-1]
	u.redo = u.redo[:len(u.redo)-1]
	c.Entity.apply(c.Key, c.New)
	u.undo = append(u.undo, c)
	return true
}

// Clear drops all undo and redo steps.
func (u *UndoSystem) Clear() {
	u.undo = nil
	u.redo = nil
}

func (u *UndoSystem) record(c Change) {
	u.redo = nil
	if u.maxLevels <= 0 {
		return
	}
	u.undo = append(u.undo, c)
	u.trim()
}

func (u *UndoSystem) trim() {
	if u.maxLevels <= 0 {
		u.undo = nil
		return
	}
	if over := len(u.undo) - u.maxLevels; over > 0 {
		u.undo = append(u.undo[:0:0], u.undo[over:]...)
	}
}
