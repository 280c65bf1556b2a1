package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/mutagen-io/treewatch/pkg/filesystem/watching"
)

// codeColors maps notification codes to their display colors. Codes without an
// entry are printed without color.
var codeColors = map[watching.Code]*color.Color{
	watching.CodeFileAdded:            color.New(color.FgGreen),
	watching.CodeDirectoryAdded:       color.New(color.FgGreen, color.Bold),
	watching.CodeFileRemoved:          color.New(color.FgRed),
	watching.CodeDirectoryRemoved:     color.New(color.FgRed, color.Bold),
	watching.CodeFileChanged:          color.New(color.FgYellow),
	watching.CodeDirectoryChanged:     color.New(color.FgYellow, color.Bold),
	watching.CodeFileRenamedFrom:      color.New(color.FgCyan),
	watching.CodeFileRenamedTo:        color.New(color.FgCyan),
	watching.CodeDirectoryRenamedFrom: color.New(color.FgCyan, color.Bold),
	watching.CodeDirectoryRenamedTo:   color.New(color.FgCyan, color.Bold),
	watching.CodeRootRemoved:          color.New(color.FgMagenta, color.Bold),
	watching.CodeRootMoved:            color.New(color.FgMagenta, color.Bold),
	watching.CodeUnmounted:            color.New(color.FgMagenta, color.Bold),
	watching.CodeOverflow:             color.New(color.FgRed, color.Bold),
	watching.CodeDisconnected:         color.New(color.FgMagenta, color.Bold),
}

// printer is a watching.Sink that prints notifications as "code path" lines
// and tallies them by code.
type printer struct {
	// output is the notification output stream.
	output io.Writer
	// lock guards counts.
	lock sync.Mutex
	// counts are the notification counts by code.
	counts map[watching.Code]uint64
	// disconnectOnce guards closure of disconnected.
	disconnectOnce sync.Once
	// disconnected is closed when the watch root's watch is retired.
	disconnected chan struct{}
}

// newPrinter creates a new printer that writes to the specified stream.
func newPrinter(output io.Writer) *printer {
	return &printer{
		output:       output,
		counts:       make(map[watching.Code]uint64),
		disconnected: make(chan struct{}),
	}
}

// Deliver implements watching.Sink.Deliver.
func (p *printer) Deliver(notification watching.Notification) {
	p.lock.Lock()
	p.counts[notification.Code]++
	p.lock.Unlock()

	code := string(notification.Code)
	if c, ok := codeColors[notification.Code]; ok {
		code = c.Sprint(code)
	}
	fmt.Fprintln(p.output, code, notification.Path)

	// Watch root disconnection leaves nothing to observe.
	if notification.Code == watching.CodeDisconnected {
		p.disconnectOnce.Do(func() {
			close(p.disconnected)
		})
	}
}

// total returns the total number of delivered notifications.
func (p *printer) total() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	var result uint64
	for _, count := range p.counts {
		result += count
	}
	return result
}

// summarize writes a summary of delivered notifications covering the period
// from start until end.
func (p *printer) summarize(output io.Writer, start, end time.Time) {
	p.lock.Lock()
	defer p.lock.Unlock()

	// Compute the total and the set of observed codes.
	var total uint64
	codes := make([]string, 0, len(p.counts))
	for code, count := range p.counts {
		total += count
		codes = append(codes, string(code))
	}
	sort.Strings(codes)

	// Print the headline.
	duration := "less than a second"
	if end.Sub(start) >= time.Second {
		duration = strings.TrimSpace(humanize.RelTime(start, end, "", ""))
	}
	fmt.Fprintf(output, "Delivered %s notifications over %s\n",
		humanize.Comma(int64(total)), duration,
	)

	// Print per-code counts.
	for _, code := range codes {
		c := watching.Code(code)
		fmt.Fprintf(output, "\t%s %-28s %s\n", code, c.Description(), humanize.Comma(int64(p.counts[c])))
	}
}
