package store

import "fmt"

// FileMode is a raw git tree-entry mode (e.g. 0100644, 0040000), grounded on
// the constants used throughout the teacher's tree decoder
// (modules/git/tree.go: sIFMT/sIFREG/sIFDIR/sIFLNK/sIFGITLINK).
type FileMode uint32

const (
	sIFMT      FileMode = 0170000
	sIFREG     FileMode = 0100000
	sIFDIR     FileMode = 0040000
	sIFLNK     FileMode = 0120000
	sIFGITLINK FileMode = 0160000

	ModeFile       FileMode = 0100644
	ModeExecutable FileMode = 0100755
	ModeDir        FileMode = 0040000
	ModeSymlink    FileMode = 0120000
	ModeSubmodule  FileMode = 0160000
)

func (m FileMode) IsDir() bool       { return m&sIFMT == sIFDIR }
func (m FileMode) IsRegular() bool   { return m&sIFMT == sIFREG }
func (m FileMode) IsSymlink() bool   { return m&sIFMT == sIFLNK }
func (m FileMode) IsSubmodule() bool { return m&sIFMT == sIFGITLINK }

func (m FileMode) String() string { return fmt.Sprintf("%06o", uint32(m)) }
