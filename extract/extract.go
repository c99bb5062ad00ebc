// Package extract turns raw message text into typed knowledge and memory
// items using a fixed set of detectors. Detectors are independent and
// additive: running several produces the union of their outputs, and a
// failure in one never suppresses the others.
package extract

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/recallhq/recall-go/core"
)

// Kind separates memory items (short importance-scored chunks) from
// knowledge items (titled, categorized entries).
type Kind int

const (
	KindMemory Kind = iota
	KindKnowledge
)

// Item is one detected piece of content. Content always carries enough
// text to be independently embeddable.
type Item struct {
	Kind    Kind
	Content string

	// Memory fields (KindMemory)
	ChunkType  core.ChunkType
	Importance float64 // [0.0, 1.0]

	// Knowledge fields (KindKnowledge)
	Title    string
	Category string
	Tags     []string
}

// Detector is the capability shared by all extractors.
type Detector interface {
	// Name identifies the detector in logs and error reports.
	Name() string

	// Detect returns the items found in text. An empty result is normal.
	Detect(ctx context.Context, text string) ([]Item, error)
}

// RunAll runs every detector against text and unions their outputs.
// Errors (and panics) are collected per detector instead of aborting the
// whole pass.
func RunAll(ctx context.Context, text string, detectors ...Detector) ([]Item, []error) {
	var items []Item
	var errs []error

	for _, d := range detectors {
		found, err := runOne(ctx, d, text)
		if err != nil {
			log.Printf("[EXTRACT] detector %s failed: %v", d.Name(), err)
			errs = append(errs, fmt.Errorf("detector %s: %w", d.Name(), err))
			continue
		}
		items = append(items, found...)
	}

	return items, errs
}

func runOne(ctx context.Context, d Detector, text string) (items []Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.Detect(ctx, text)
}

// sentences splits text on sentence-ending punctuation and newlines.
// Fragments shorter than a few characters are dropped.
func sentences(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

// titleFor derives a short title from a sentence: its first eight words.
func titleFor(sentence string) string {
	words := strings.Fields(sentence)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}
