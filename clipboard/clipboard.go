package clipboard

import cb "github.com/atotto/clipboard"

// Board is read/write access to a clipboard.
type Board interface {
	Read() (string, error)
	Copy(text string) error
}

type system struct{}

// System returns the desktop clipboard.
func System() Board { return system{} }

func (system) Read() (string, error) { return Read() }
func (system) Copy(text string) error { return Copy(text) }

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}
