package prioexec

// Middleware wraps a WorkFunc to provide cross-cutting concerns such as
// logging or metrics around every task's work.
type Middleware func(WorkFunc) WorkFunc

// chain applies mws so that the first registered middleware is the outermost.
func chain(w WorkFunc, mws []Middleware) WorkFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		w = mws[i](w)
	}
	return w
}
