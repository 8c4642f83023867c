package engine

// ConnectChain rewires a track's signal path to run through the given
// effects in order. Any previous chain is disconnected first, then the path
// is built source to sink and terminated at the master input. The returned
// port is the final connection target.
func (e *Engine) ConnectChain(t *Track, effects []*EffectAdapter) *Port {
	e.state.Lock()
	defer e.state.Unlock()
	return e.connectChain(t, effects)
}

func (e *Engine) connectChain(t *Track, effects []*EffectAdapter) *Port {
	t.instrument.Output().Disconnect()
	for _, fx := range t.effects {
		fx.Output.Disconnect()
	}
	t.effects = effects
	src := t.instrument.Output()
	for _, fx := range effects {
		src.Connect(fx.Input)
		src = fx.Output
	}
	src.Connect(e.state.master.input)
	return e.state.master.input
}

// DisposeChain removes and disposes a track's effects, leaving the
// instrument wired straight to the master.
func (e *Engine) DisposeChain(t *Track) {
	e.state.Lock()
	defer e.state.Unlock()
	effects := t.effects
	e.connectChain(t, nil)
	for _, fx := range effects {
		fx.Dispose()
	}
}
