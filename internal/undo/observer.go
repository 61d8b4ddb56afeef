package undo

// Status is a snapshot of engine state for UI graying and diagnostics.
type Status struct {
	Active       bool   `json:"active"`
	Frozen       bool   `json:"frozen"`
	FreezeCutoff int64  `json:"freeze_cutoff"` // -1 when not frozen
	FirstLog     int64  `json:"firstlog"`
	Epoch        string `json:"epoch,omitempty"`
	UndoDepth    int    `json:"undo_depth"`
	RedoDepth    int    `json:"redo_depth"`
	CanUndo      bool   `json:"can_undo"`
	CanRedo      bool   `json:"can_redo"`
}

// Observer receives notifications after engine operations.
//
// Refresh is called after every operation that returns without error, with
// the state the operation left behind. Reload is called after an undo or redo
// commits, when every view of the watched tables is stale.
//
// Observers run on the caller's goroutine and must not call back into the
// engine.
type Observer interface {
	Refresh(Status)
	Reload()
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnRefresh func(Status)
	OnReload  func()
}

// Refresh calls OnRefresh if set.
func (o ObserverFuncs) Refresh(s Status) {
	if o.OnRefresh != nil {
		o.OnRefresh(s)
	}
}

// Reload calls OnReload if set.
func (o ObserverFuncs) Reload() {
	if o.OnReload != nil {
		o.OnReload()
	}
}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

// Refresh notifies every observer.
func (m MultiObserver) Refresh(s Status) {
	for _, o := range m {
		o.Refresh(s)
	}
}

// Reload notifies every observer.
func (m MultiObserver) Reload() {
	for _, o := range m {
		o.Reload()
	}
}
