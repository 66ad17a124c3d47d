//go:build windows

package logger

import (
	"os"
	"strings"
	"syscall"
	"unsafe"
)

const SupportsColorEscapes = true

var (
	kernel32                       = syscall.NewLazyDLL("kernel32.dll")
	procGetConsoleMode             = kernel32.NewProc("GetConsoleMode")
	procSetConsoleTextAttribute    = kernel32.NewProc("SetConsoleTextAttribute")
	procGetConsoleScreenBufferInfo = kernel32.NewProc("GetConsoleScreenBufferInfo")
)

// consoleScreenBufferInfo mirrors the Win32 CONSOLE_SCREEN_BUFFER_INFO
// struct layout; only the size fields are read.
type consoleScreenBufferInfo struct {
	dwSizeX              int16
	dwSizeY              int16
	dwCursorPositionX    int16
	dwCursorPositionY    int16
	wAttributes          uint16
	srWindowLeft         int16
	srWindowTop          int16
	srWindowRight        int16
	srWindowBottom       int16
	dwMaximumWindowSizeX int16
	dwMaximumWindowSizeY int16
}

func GetTerminalInfo(file *os.File) TerminalInfo {
	fd := file.Fd()

	var mode uint32
	r1, _, _ := procGetConsoleMode.Call(fd, uintptr(unsafe.Pointer(&mode)))

	var buf consoleScreenBufferInfo
	procGetConsoleScreenBufferInfo.Call(fd, uintptr(unsafe.Pointer(&buf)))

	return TerminalInfo{
		IsTTY: r1 != 0,
		// The buffer's reported size is one column/row larger than the
		// visible window in practice; trim it the way esbuild's own
		// console handling does.
		Width:           int(buf.dwSizeX) - 1,
		Height:          int(buf.dwSizeY) - 1,
		UseColorEscapes: true,
	}
}

const (
	consoleFGBlue      = 1
	consoleFGGreen     = 2
	consoleFGRed       = 4
	consoleFGIntensity = 8
)

// consoleAttr pairs one of TerminalColors' ANSI escapes with the console
// text-attribute bitmask that approximates it - the Windows console API has
// no ANSI interpreter, so writeStringWithColor below does the translation
// itself rather than writing escape bytes straight through.
type consoleAttr struct {
	ansi  string
	attrs uintptr
}

// consoleAttrTable is built from TerminalColors rather than duplicating its
// escape sequences as separate constants, so the two can never drift apart.
func consoleAttrTable() []consoleAttr {
	c := TerminalColors
	allColors := uintptr(consoleFGRed | consoleFGGreen | consoleFGBlue)
	return []consoleAttr{
		{c.Bold, allColors | consoleFGIntensity},
		// Underline only renders correctly under the CJK console locale, so
		// it's mapped to plain white like a reset.
		{c.Underline, allColors},
		{c.Dim, allColors},
		{c.Reset, allColors},
		{c.Red, consoleFGRed},
		{c.Green, consoleFGGreen},
		{c.Blue, consoleFGBlue},
		{c.Cyan, consoleFGGreen | consoleFGBlue},
		{c.Magenta, consoleFGRed | consoleFGBlue},
		{c.Yellow, consoleFGRed | consoleFGGreen},
	}
}

func writeStringWithColor(file *os.File, text string) {
	table := consoleAttrTable()
	fd := file.Fd()

	for len(text) > 0 {
		escape := strings.IndexByte(text, 033)
		if escape < 0 {
			break
		}

		var matched bool
		for _, entry := range table {
			if entry.ansi == "" || !strings.HasPrefix(text[escape:], entry.ansi) {
				continue
			}
			file.WriteString(text[:escape])
			text = text[escape+len(entry.ansi):]
			procSetConsoleTextAttribute.Call(fd, entry.attrs)
			matched = true
			break
		}
		if !matched {
			// Not one of ours - pass through literally and keep scanning
			// past it so an unrecognized escape can't loop forever.
			file.WriteString(text[:escape+1])
			text = text[escape+1:]
		}
	}

	file.WriteString(text)
}
