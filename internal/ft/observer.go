package ft

// Observer receives the outcome of every report run and remote call.
type Observer interface {
	ObserveRun(report *Report, err error)
	ObserveRemoteCall(kind OpKind, err error)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) ObserveRun(*Report, error)       {}
func (NopObserver) ObserveRemoteCall(OpKind, error) {}
