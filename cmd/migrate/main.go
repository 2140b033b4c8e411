package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// entry mirrors the ledger JSON record. Unknown fields are kept as raw JSON
// so rewriting never drops data.
type entry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	raw   json.RawMessage
}

func (e *entry) UnmarshalJSON(data []byte) error {
	type plain struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	e.Title, e.URL = p.Title, p.URL
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (e entry) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	return json.Marshal(struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}{e.Title, e.URL})
}

const usage = `Usage: migrate <backfill-known|remove-duplicates> <data-directory>

Rewrites the JSON ledgers (results.json, failed.json, known.json) of every
run_* directory. Runs stored with the sqlite backend are not touched.

backfill-known is only needed for tools reading the files directly: the
curator repairs known.json itself whenever it loads a run.`

func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}

	command := os.Args[1]
	dataDir := os.Args[2]

	switch command {
	case "backfill-known":
		if err := forEachRun(dataDir, backfillKnown); err != nil {
			log.Fatal(err)
		}
	case "remove-duplicates":
		reader := bufio.NewReader(os.Stdin)
		if err := forEachRun(dataDir, func(runDir string) error {
			return removeDuplicates(runDir, reader)
		}); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q\n\n%s", command, usage)
	}
}

func forEachRun(dataDir string, fn func(runDir string) error) error {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return fmt.Errorf("reading data directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "run_") {
			continue
		}
		runDir := filepath.Join(dataDir, e.Name())
		if err := fn(runDir); err != nil {
			log.Printf("Error processing %s: %v", runDir, err)
		}
	}
	return nil
}

// backfillKnown adds every results and failed URL to known.json. Runs made
// before known.json existed only had results.json.
func backfillKnown(runDir string) error {
	results, err := readLedger(filepath.Join(runDir, "results.json"))
	if err != nil {
		return err
	}
	failed, err := readLedger(filepath.Join(runDir, "failed.json"))
	if err != nil {
		return err
	}
	knownPath := filepath.Join(runDir, "known.json")
	known, err := readLedger(knownPath)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(known))
	for _, k := range known {
		seen[k.URL] = true
	}

	added := 0
	for _, e := range append(results, failed...) {
		if e.URL == "" || seen[e.URL] {
			continue
		}
		seen[e.URL] = true
		known = append(known, entry{Title: e.Title, URL: e.URL})
		added++
	}

	if added == 0 {
		log.Printf("%s: known.json up to date, skipping", filepath.Base(runDir))
		return nil
	}
	log.Printf("%s: adding %d entries to known.json", filepath.Base(runDir), added)
	return writeLedger(knownPath, known)
}

// removeDuplicates keeps the first occurrence of each URL in results.json
// and failed.json, and drops failed entries that were also accepted
func removeDuplicates(runDir string, reader *bufio.Reader) error {
	resultsPath := filepath.Join(runDir, "results.json")
	results, err := readLedger(resultsPath)
	if err != nil {
		return err
	}
	failedPath := filepath.Join(runDir, "failed.json")
	failed, err := readLedger(failedPath)
	if err != nil {
		return err
	}

	accepted := make(map[string]bool)
	keptResults, removedResults := dedupe(results, accepted, reader)
	keptFailed, removedFailed := dedupe(failed, accepted, reader)

	if removedResults > 0 {
		if err := writeLedger(resultsPath, keptResults); err != nil {
			return err
		}
	}
	if removedFailed > 0 {
		if err := writeLedger(failedPath, keptFailed); err != nil {
			return err
		}
	}
	fmt.Printf("%s: removed %d duplicate entries\n", filepath.Base(runDir), removedResults+removedFailed)
	return nil
}

// dedupe drops entries whose URL is already in seen, after confirmation
func dedupe(entries []entry, seen map[string]bool, reader *bufio.Reader) ([]entry, int) {
	kept := make([]entry, 0, len(entries))
	removed := 0
	for _, e := range entries {
		if !seen[e.URL] {
			seen[e.URL] = true
			kept = append(kept, e)
			continue
		}
		if confirmDelete(reader, e.URL) {
			removed++
			fmt.Printf("  REMOVED: %s\n", e.URL)
			continue
		}
		fmt.Printf("  SKIP: %s\n", e.URL)
		kept = append(kept, e)
	}
	return kept, removed
}

func readLedger(path string) ([]entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

func writeLedger(path string, entries []entry) error {
	if entries == nil {
		entries = []entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic replaces path through a synced temp file in the same
// directory, so a crash leaves either the old ledger or the new one.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func confirmDelete(reader *bufio.Reader, url string) bool {
	for {
		fmt.Printf("  DELETE duplicate %s? [y/N]: ", url)
		input, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("Error reading input: %v", err)
			return false
		}
		response := strings.ToLower(strings.TrimSpace(input))
		switch response {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Println("  Please enter y or n.")
		}
	}
}
