package neon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"machine-access-backend/internal/directory"
)

// BuildRoster converts raw Neon search results into directory users.
// Accounts without any fob code are skipped: they can never badge in.
// An authorization field counts as held when its value equals the
// configured authorized marker (e.g. "Training Complete").
func BuildRoster(results []map[string]string, fields FieldMap) []*directory.User {
	var users []*directory.User
	for _, row := range results {
		var fobs []string
		for _, ff := range fields.FobFields {
			if code := strings.TrimSpace(row[ff]); code != "" {
				fobs = append(fobs, directory.NormalizeFob(code))
			}
		}
		if len(fobs) == 0 {
			continue
		}

		var auths []string
		for _, af := range fields.AuthorizationFields {
			if strings.TrimSpace(row[af]) == fields.AuthorizedFieldValue {
				auths = append(auths, af)
			}
		}
		sort.Strings(auths)

		users = append(users, &directory.User{
			FobCodes:       fobs,
			AccountID:      strings.TrimSpace(row[fields.AccountIDField]),
			FullName:       strings.TrimSpace(row[fields.NameField]),
			FirstName:      strings.TrimSpace(row[fields.FirstNameField]),
			PreferredName:  strings.TrimSpace(row[fields.PreferredNameField]),
			Email:          strings.TrimSpace(row[fields.EmailField]),
			ExpirationYMD:  strings.TrimSpace(row[fields.ExpirationField]),
			Authorizations: auths,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].AccountID < users[j].AccountID })
	return users
}

// WriteRoster atomically replaces the roster file, so a crash mid-write
// never leaves the directory with a truncated file to load.
func WriteRoster(path string, users []*directory.User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize roster: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp roster file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write roster: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close roster: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace roster file: %w", err)
	}
	return nil
}
