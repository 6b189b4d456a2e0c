package resin

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// resinLog is the process-local plain-text log file spec.md §4.3 and §6
// describe: "transcoder.resin.<pid>.log" in the worker's working
// directory, a four-line header, then one filename per line.
type resinLog struct {
	file *os.File
	w    *bufio.Writer
}

// logFileName is the process-local resin log's name, per spec.md §6:
// "transcoder.resin.<pid>.log" in the worker's working directory.
func logFileName() string {
	return fmt.Sprintf("transcoder.resin.%d.log", os.Getpid())
}

func newResinLog(source string) (*resinLog, error) {
	name := logFileName()
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	l := &resinLog{file: f, w: bufio.NewWriter(f)}
	if fi.Size() == 0 {
		l.writeHeader(source)
	}
	return l, nil
}

// writeHeader writes the four-line banner described in spec.md §6:
// LOGTYPE, DESCRIPTION, SOURCE, DATE.
func (l *resinLog) writeHeader(source string) {
	fmt.Fprintln(l.w, "# LOGTYPE: resin")
	fmt.Fprintln(l.w, "# DESCRIPTION: filenames classified as resin (no tissue detected)")
	fmt.Fprintln(l.w, "# SOURCE:", source)
	fmt.Fprintln(l.w, "# DATE:", time.Now().UTC().Format(time.RFC3339))
	l.w.Flush()
}

func (l *resinLog) Println(name string) {
	fmt.Fprintln(l.w, name)
	l.w.Flush()
}

func (l *resinLog) Close() error {
	if err := l.w.Flush(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
