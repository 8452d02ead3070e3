// Command memmap validates the memory map of a microcontroller target and
// produces the artifacts that depend on it.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/q0jt/go-memmap/memmap"
)

const usage = `usage: memmap <command> -map <file.pkl|file.yaml> [flags]

commands:
  check     validate the region table and print the resolved layout
  stack     print the initial stack pointer
  ld        write the linker MEMORY block and exported symbols
  place     validate the placement of a compiled image (-hex or -elf)
  install   run the startup sequence and write the reset slot into a hex image
  manifest  write the layout manifest (protobuf, or JSON with -json)
  extract   cut a reservation or the application out of a flash dump
`

var verbose bool

func main() {
	log.SetFlags(0)
	log.SetPrefix("memmap: ")
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1], os.Args[2:], os.Stdout); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	w := io.Writer(os.Stderr)
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		w = colorable.NewColorableStderr()
		fmt.Fprintf(w, "\x1b[31merror:\x1b[0m %v\n", err)
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func vlogf(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

type options struct {
	mapFile     string
	output      string
	hexFile     string
	elfFile     string
	image       string
	region      string
	reservation string
	vector      string
	entry       string
	json        bool
}

func parseFlags(cmd string, args []string) (*options, error) {
	var o options
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.StringVar(&o.mapFile, "map", "", "memory map (.pkl, .yaml)")
	fs.StringVar(&o.output, "o", "", "output file (default stdout)")
	fs.BoolVar(&verbose, "v", false, "log progress")
	switch cmd {
	case "place":
		fs.StringVar(&o.hexFile, "hex", "", "Intel HEX image")
		fs.StringVar(&o.elfFile, "elf", "", "ELF executable")
	case "install":
		fs.StringVar(&o.hexFile, "hex", "", "Intel HEX image to patch")
		fs.StringVar(&o.elfFile, "elf", "", "ELF executable to check and take the entry point from")
		fs.StringVar(&o.vector, "vector", "", "address of the reset slot (supplied by the toolchain)")
		fs.StringVar(&o.entry, "entry", "", "entry point (default: image start address)")
	case "manifest":
		fs.BoolVar(&o.json, "json", false, "write protobuf JSON instead of binary")
	case "extract":
		fs.StringVar(&o.image, "image", "", "flash dump (.hex or raw)")
		fs.StringVar(&o.region, "region", memmap.CodeRegionName, "region the dump covers")
		fs.StringVar(&o.reservation, "reservation", "", "reservation label to extract (default: the application)")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.mapFile == "" {
		return nil, errors.New("-map is required")
	}
	return &o, nil
}

func run(ctx context.Context, cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "check", "stack", "ld", "place", "install", "manifest", "extract":
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	o, err := parseFlags(cmd, args)
	if err != nil {
		return err
	}
	t, err := memmap.LoadTable(ctx, o.mapFile)
	if err != nil {
		return err
	}
	vlogf("loaded %d regions from %s", len(t.Regions()), o.mapFile)
	in := memmap.NewInitializer()
	if err := in.Configure(t); err != nil {
		return err
	}
	var out bytes.Buffer
	switch cmd {
	case "check":
		err = check(&out, t)
	case "stack":
		var sp uint64
		if sp, err = memmap.ComputeInitialStack(t); err == nil {
			fmt.Fprintf(&out, "%#08x\n", sp)
		}
	case "ld":
		err = memmap.WriteLinkerScript(&out, t)
	case "place":
		err = place(in, o)
	case "install":
		err = install(&out, in, o)
	case "manifest":
		err = manifest(&out, t, o.json)
	case "extract":
		err = extract(&out, t, o)
	}
	if err != nil {
		return err
	}
	return emit(o.output, out.Bytes(), stdout)
}

func emit(name string, data []byte, stdout io.Writer) error {
	if name == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := memmap.WriteFileLocked(name, data); err != nil {
		return err
	}
	vlogf("wrote %s (%d bytes)", name, len(data))
	return nil
}

func check(w io.Writer, t *memmap.Table) error {
	for _, r := range t.Regions() {
		span, err := t.Resolve(r.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-8s %-3s %#010x %8s  available %#010x %8s\n",
			r.Name, r.Perm, r.Base, memmap.FormatLength(r.Length), span.Base, memmap.FormatLength(span.Length))
		for _, res := range t.Reservations(r.Name) {
			fmt.Fprintf(w, "  reserved %-12s %#010x %8s\n",
				res.Label, r.Base+res.Offset, memmap.FormatLength(res.Size))
		}
	}
	sp, err := memmap.ComputeInitialStack(t)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "stack top %#010x\n", sp)
	return nil
}

func loadSections(o *options) ([]memmap.Section, uint64, bool, error) {
	switch {
	case o.elfFile != "":
		f, err := os.Open(o.elfFile)
		if err != nil {
			return nil, 0, false, err
		}
		defer f.Close()
		sections, entry, err := memmap.SectionsFromELF(f)
		return sections, entry, err == nil, err
	case o.hexFile != "":
		f, err := os.Open(o.hexFile)
		if err != nil {
			return nil, 0, false, err
		}
		defer f.Close()
		return memmap.SectionsFromHex(f)
	}
	return nil, 0, false, errors.New("one of -hex or -elf is required")
}

func place(in *memmap.Initializer, o *options) error {
	sections, _, _, err := loadSections(o)
	if err != nil {
		return err
	}
	vlogf("validating %d sections", len(sections))
	return in.Place(sections)
}

func install(w io.Writer, in *memmap.Initializer, o *options) error {
	if o.hexFile == "" {
		return errors.New("-hex is required")
	}
	if o.vector == "" {
		return errors.New("-vector is required")
	}
	vector, err := parseAddr(o.vector)
	if err != nil {
		return fmt.Errorf("-vector: %w", err)
	}
	sections, entry, ok, err := loadSections(o)
	if err != nil {
		return err
	}
	if o.entry != "" {
		if entry, err = parseAddr(o.entry); err != nil {
			return fmt.Errorf("-entry: %w", err)
		}
		ok = true
	}
	if !ok {
		return errors.New("image has no start address, use -entry")
	}
	if err := in.Place(sections); err != nil {
		return err
	}
	f, err := os.Open(o.hexFile)
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := memmap.ReadVectorImage(in.Table(), f, vector)
	if err != nil {
		return err
	}
	if err := in.Start(entry, img); err != nil {
		return err
	}
	sp, _ := in.StackPointer()
	start, _ := in.Entry()
	vlogf("installed stack pointer %#08x, entry %#08x at %#08x", sp, start, vector)
	return img.WriteHex(w)
}

func manifest(w io.Writer, t *memmap.Table, asJSON bool) error {
	m, err := memmap.NewManifest(t)
	if err != nil {
		return err
	}
	var b []byte
	if asJSON {
		b, err = m.MarshalJSON()
	} else {
		b, err = m.Marshal()
	}
	if err != nil {
		return err
	}
	vlogf("manifest digest %#04x", m.Digest)
	_, err = w.Write(b)
	return err
}

func extract(w io.Writer, t *memmap.Table, o *options) error {
	if o.image == "" {
		return errors.New("-image is required")
	}
	img, err := memmap.OpenImage(t, o.region, o.image)
	if err != nil {
		return err
	}
	var b []byte
	if o.reservation != "" {
		b, err = img.ExtractReservation(o.reservation)
	} else {
		b, err = img.ExtractApp()
	}
	if err != nil {
		return err
	}
	vlogf("extracted %d bytes from %s", len(b), filepath.Base(o.image))
	_, err = w.Write(b)
	return err
}

func parseAddr(s string) (uint64, error) {
	s = strings.ReplaceAll(s, "_", "")
	return strconv.ParseUint(s, 0, 64)
}
