package hotkey

// FakeHotkey is driven by the caller instead of a keyboard.
type FakeHotkey struct {
	edges chan Edge
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{edges: make(chan Edge, edgeQueue)}
}

func (f *FakeHotkey) Register() error    { return nil }
func (f *FakeHotkey) Unregister()        {}
func (f *FakeHotkey) Edges() <-chan Edge { return f.edges }

func (f *FakeHotkey) SimKeydown() { f.edges <- EdgeDown }
func (f *FakeHotkey) SimKeyup()   { f.edges <- EdgeUp }
