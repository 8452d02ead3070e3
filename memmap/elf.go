package memmap

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
)

var errNoLoadable = errors.New("memmap: no loadable segment in elf file")

// SectionsFromELF returns the loadable segments of an ELF executable as
// sections. A segment whose load address differs from its run address
// (initialized data copied from flash at startup) yields two sections: the
// run copy sized by its memory size and the load copy sized by its file
// size.
func SectionsFromELF(r io.ReaderAt) (sections []Section, entry uint64, err error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, 0, fmt.Errorf("memmap: read elf: %w", err)
	}
	defer f.Close()
	for i, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Memsz == 0 {
			continue
		}
		name := segmentName(f, p, i)
		sections = append(sections, Section{Name: name, Addr: p.Vaddr, Size: p.Memsz})
		if p.Paddr != p.Vaddr && p.Filesz > 0 {
			sections = append(sections, Section{Name: name + ".load", Addr: p.Paddr, Size: p.Filesz})
		}
	}
	if len(sections) == 0 {
		return nil, 0, errNoLoadable
	}
	return sections, f.Entry, nil
}

// segmentName names a segment after the first allocated section it holds.
func segmentName(f *elf.File, p *elf.Prog, i int) string {
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Size == 0 {
			continue
		}
		if s.Addr >= p.Vaddr && s.Addr < p.Vaddr+p.Memsz {
			return s.Name
		}
	}
	return fmt.Sprintf("segment%d", i)
}
