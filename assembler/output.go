package assembler

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Target is an addressable output image.
type Target interface {
	io.Writer
	io.Seeker
	io.ReaderAt
	io.Closer
}

// OpenTarget opens filename for output. create truncates the file; without
// it the existing contents are modified in place. A missing file is always
// created.
func OpenTarget(filename string, create bool) (Target, error) {
	if _, err := os.Stat(filename); err != nil {
		create = true
	}
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(filename, flags, 0644)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

func (a *Assembler) pc() int64 {
	return a.origin + a.base
}

// seek moves the target cursor. It only has an effect in the write phase.
func (a *Assembler) seek(offset int64) error {
	if a.target == nil || a.phase != Write {
		return nil
	}
	_, err := a.target.Seek(offset, io.SeekStart)
	return errors.Wrap(err, "unable to seek target file")
}

func (a *Assembler) track(length int) error {
	if !a.tracker.enable {
		return nil
	}
	address, err := a.target.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "unable to query target offset")
	}
	for n := int64(0); n < int64(length); n++ {
		if _, ok := a.tracker.addresses[address+n]; ok {
			return Errors.Overwrite(address+n, a.base)
		}
		a.tracker.addresses[address+n] = struct{}{}
	}
	return nil
}

// write emits length bytes of data in the active byte order. Bytes only
// reach the output in the write phase, but origin advances in every phase.
func (a *Assembler) write(data uint64, length int) error {
	if a.phase == Write {
		buffer := make([]byte, length)
		for n := 0; n < length; n++ {
			shift := 8 * n
			if a.bigEndian {
				shift = 8 * (length - 1 - n)
			}
			if shift < 64 {
				buffer[n] = byte(data >> shift)
			}
		}

		if a.target != nil {
			if err := a.track(length); err != nil {
				return err
			}
			if _, err := a.target.Write(buffer); err != nil {
				return errors.Wrap(err, "unable to write target file")
			}
		} else if a.Stdout != nil && !isTerminal(a.Stdout) {
			if _, err := a.Stdout.Write(buffer); err != nil {
				return errors.Wrap(err, "unable to write output")
			}
		}
	}
	a.origin += int64(length)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
