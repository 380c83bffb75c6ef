package app

// Toaster collects failure messages for the status bar. It satisfies
// transport.Reporter. Messages beyond the buffer are dropped.
type Toaster struct {
	ch chan string
}

// NewToaster creates a Toaster.
func NewToaster() *Toaster {
	return &Toaster{ch: make(chan string, 8)}
}

// ReportError queues message for display without blocking.
func (t *Toaster) ReportError(message string) {
	if message == "" {
		return
	}
	select {
	case t.ch <- message:
	default:
	}
}
