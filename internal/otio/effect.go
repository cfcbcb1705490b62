package otio

// AnyEffect is implemented by Effect and the types that embed it.
type AnyEffect interface {
	SerializableObject
	Name() string
	SetName(name string)
	Metadata() *AnyDictionary
	EffectName() string
	Enabled() bool
	SetEnabled(enabled bool)
	effect() *Effect
}

// Effect names an operation applied to an item. Effects are descriptive
// only; nothing here executes them.
type Effect struct {
	SerializableObjectWithMetadata
	effectName string
	enabled    bool
}

func NewEffect(name, effectName string) *Effect {
	e := &Effect{effectName: effectName, enabled: true}
	e.name = name
	return e
}

func (e *Effect) SchemaName() string { return "Effect" }
func (e *Effect) SchemaVersion() int { return 1 }

func (e *Effect) effect() *Effect { return e }

func (e *Effect) EffectName() string        { return e.effectName }
func (e *Effect) SetEffectName(name string) { e.effectName = name }
func (e *Effect) Enabled() bool             { return e.enabled }
func (e *Effect) SetEnabled(enabled bool)   { e.enabled = enabled }

func (e *Effect) writeTo(w *writer) {
	e.SerializableObjectWithMetadata.writeTo(w)
	w.put("effect_name", e.effectName)
	w.put("enabled", e.enabled)
}

func (e *Effect) readFrom(r *reader) error {
	if err := e.SerializableObjectWithMetadata.readFrom(r); err != nil {
		return err
	}
	var err error
	if e.effectName, err = r.readString("effect_name"); err != nil {
		return err
	}
	e.enabled, err = r.readBool("enabled", true)
	return err
}

// LinearTimeWarp plays its item at timeScalar times normal speed.
type LinearTimeWarp struct {
	Effect
	timeScalar float64
}

func NewLinearTimeWarp(name string, timeScalar float64) *LinearTimeWarp {
	l := &LinearTimeWarp{timeScalar: timeScalar}
	l.name = name
	l.effectName = "LinearTimeWarp"
	l.enabled = true
	return l
}

func (l *LinearTimeWarp) SchemaName() string { return "LinearTimeWarp" }
func (l *LinearTimeWarp) SchemaVersion() int { return 1 }

func (l *LinearTimeWarp) TimeScalar() float64          { return l.timeScalar }
func (l *LinearTimeWarp) SetTimeScalar(scalar float64) { l.timeScalar = scalar }

func (l *LinearTimeWarp) writeTo(w *writer) {
	l.Effect.writeTo(w)
	w.put("time_scalar", l.timeScalar)
}

func (l *LinearTimeWarp) readFrom(r *reader) error {
	if err := l.Effect.readFrom(r); err != nil {
		return err
	}
	var err error
	l.timeScalar, err = r.readFloat("time_scalar", 1)
	return err
}

// FreezeFrame holds a single frame: a time warp with a scalar of zero.
type FreezeFrame struct {
	LinearTimeWarp
}

func NewFreezeFrame(name string) *FreezeFrame {
	f := &FreezeFrame{}
	f.name = name
	f.effectName = "FreezeFrame"
	f.enabled = true
	return f
}

func (f *FreezeFrame) SchemaName() string { return "FreezeFrame" }
func (f *FreezeFrame) SchemaVersion() int { return 1 }

func (f *FreezeFrame) readFrom(r *reader) error {
	if err := f.Effect.readFrom(r); err != nil {
		return err
	}
	var err error
	f.timeScalar, err = r.readFloat("time_scalar", 0)
	return err
}
