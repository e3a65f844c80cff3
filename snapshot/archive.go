package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/amonks/tareas/task"
)

// Archive inserts rec into the JSON archive at path, replacing any record
// with the same name. An unreadable archive is left untouched and an error
// wrapping ErrUnreadable is returned.
func Archive(path string, rec task.ArchiveRecord) error {
	records, err := ReadArchive(path)
	if err != nil {
		return err
	}

	replaced := false
	for i := range records {
		if records[i].Name == rec.Name {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// ReadArchive returns every archived record in file order. A missing file
// is an empty archive.
func ReadArchive(path string) ([]task.ArchiveRecord, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []task.ArchiveRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnreadable, path, err)
	}
	if len(data) == 0 {
		return []task.ArchiveRecord{}, nil
	}

	var records []task.ArchiveRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrUnreadable, path, err)
	}
	if records == nil {
		records = []task.ArchiveRecord{}
	}
	return records, nil
}
