package poller

// Observer receives notifications from a run as it happens. Calls are made
// from the run loop's goroutine and must not block.
type Observer interface {
	// SessionOpened is called after a host is admitted. active is the number
	// of open sessions including the new one.
	SessionOpened(hostID uint64, active int)

	// SessionClosed is called after a session is reaped.
	SessionClosed(hostID uint64, active int)

	// ErrorRecorded is called for every entry added to the error log.
	ErrorRecorded(e Error)

	// RowAppended is called for every row appended to column.
	RowAppended(column int)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(uint64, int) {}
func (nopObserver) SessionClosed(uint64, int) {}
func (nopObserver) ErrorRecorded(Error)       {}
func (nopObserver) RowAppended(int)           {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) SessionOpened(hostID uint64, active int) {
	for _, x := range o {
		x.SessionOpened(hostID, active)
	}
}

func (o Observers) SessionClosed(hostID uint64, active int) {
	for _, x := range o {
		x.SessionClosed(hostID, active)
	}
}

func (o Observers) ErrorRecorded(e Error) {
	for _, x := range o {
		x.ErrorRecorded(e)
	}
}

func (o Observers) RowAppended(column int) {
	for _, x := range o {
		x.RowAppended(column)
	}
}
