package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// FobLength is the canonical length of a fob code. Reader firmware strips
// leading zeros, so shorter codes are left-padded back to this length
// before any comparison or storage.
const FobLength = 10

// NormalizeFob left-pads a fob code with zeros to the canonical length.
// Codes already at or beyond the canonical length are returned unchanged.
func NormalizeFob(code string) string {
	if len(code) >= FobLength {
		return code
	}
	return strings.Repeat("0", FobLength-len(code)) + code
}

// Diff summarizes the change between two roster snapshots, keyed by
// account ID.
type Diff struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Updated int `json:"updated"`
}

// snapshot is one immutable load of the roster file.
type snapshot struct {
	users    []*User
	byFob    map[string]*User
	byAcct   map[string]*User
	loadTime time.Time
}

// Directory maps fob codes to users. Lookups are read-only against the
// current snapshot; Reload builds a new snapshot from the roster file and
// swaps it in atomically.
type Directory struct {
	path string

	mu   sync.RWMutex
	snap *snapshot
}

// Load reads and validates the roster file at path.
func Load(path string) (*Directory, error) {
	snap, err := loadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return &Directory{path: path, snap: snap}, nil
}

func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users config: %w", err)
	}

	var users []*User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse users config %s: %w", path, err)
	}

	snap := &snapshot{
		users:    users,
		byFob:    make(map[string]*User),
		byAcct:   make(map[string]*User, len(users)),
		loadTime: time.Now().UTC(),
	}
	for i, u := range users {
		if len(u.FobCodes) == 0 {
			return nil, fmt.Errorf("user %s (index %d) has no fob codes", u.AccountID, i)
		}
		if u.AccountID == "" {
			return nil, fmt.Errorf("user at index %d has no account_id", i)
		}
		if _, dup := snap.byAcct[u.AccountID]; dup {
			return nil, fmt.Errorf("duplicate account_id %s", u.AccountID)
		}
		snap.byAcct[u.AccountID] = u
		for _, fob := range u.FobCodes {
			norm := NormalizeFob(fob)
			if prev, dup := snap.byFob[norm]; dup {
				return nil, fmt.Errorf("fob %s assigned to both %s and %s",
					norm, prev.AccountID, u.AccountID)
			}
			snap.byFob[norm] = u
		}
	}
	return snap, nil
}

// Lookup returns the user owning the given fob code, or nil if the code
// is unknown. The code must already be normalized.
func (d *Directory) Lookup(fob string) *User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.byFob[fob]
}

// Reload re-reads the roster file and swaps in the new snapshot,
// returning a count of added, removed, and changed users. The previous
// snapshot stays live if the new file fails to load.
func (d *Directory) Reload() (Diff, error) {
	next, err := loadSnapshot(d.path)
	if err != nil {
		return Diff{}, err
	}

	d.mu.Lock()
	prev := d.snap
	d.snap = next
	d.mu.Unlock()

	var diff Diff
	for id, u := range next.byAcct {
		old, ok := prev.byAcct[id]
		if !ok {
			diff.Added++
			continue
		}
		if !usersEqual(old, u) {
			diff.Updated++
		}
	}
	for id := range prev.byAcct {
		if _, ok := next.byAcct[id]; !ok {
			diff.Removed++
		}
	}
	return diff, nil
}

func usersEqual(a, b *User) bool {
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return string(ja) == string(jb)
}

// UserCount returns the number of users in the current snapshot.
func (d *Directory) UserCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.snap.users)
}

// FobCount returns the number of distinct fob codes in the current snapshot.
func (d *Directory) FobCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.snap.byFob)
}

// LoadTime returns when the current snapshot was loaded.
func (d *Directory) LoadTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.loadTime
}
