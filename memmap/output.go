package memmap

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteFileLocked writes data to name while holding name.lock, so parallel
// builds sharing an output directory do not interleave. The data goes to a
// temporary file first and is renamed into place.
func WriteFileLocked(name string, data []byte) (err error) {
	lock := flock.New(name + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if uerr := lock.Unlock(); err == nil {
			err = uerr
		}
	}()
	tmp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
