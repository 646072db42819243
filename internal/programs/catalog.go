package programs

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strconv"
	"strings"

	"programfinder/internal/config"
	"programfinder/internal/programs/types"

	"github.com/samber/lo"
)

// programs.json is the chapter list shipped with the site. CATALOG_PATH overrides it.
//
//go:embed programs.json
var embeddedPrograms []byte

type catalogFile struct {
	Programs []types.ProgramRecord `json:"programs"`
}

// Catalog is an immutable, ordered list of program records.
type Catalog struct {
	records []types.ProgramRecord
	byKey   map[string]int
	version string
}

// Load parses a {"programs": [...]} document and assigns stable keys.
func Load(raw []byte) (*Catalog, error) {
	var file catalogFile
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	records := make([]types.ProgramRecord, len(file.Programs))
	byKey := make(map[string]int, len(file.Programs))
	for i, p := range file.Programs {
		key := recordKey(p)
		if _, taken := byKey[key]; taken {
			for n := 2; ; n++ {
				candidate := key + "-" + strconv.Itoa(n)
				if _, taken := byKey[candidate]; !taken {
					key = candidate
					break
				}
			}
		}
		p.Key = key
		records[i] = p
		byKey[key] = i
	}

	sum := sha256.Sum256(raw)
	return &Catalog{
		records: records,
		byKey:   byKey,
		version: fmt.Sprintf("%x", sum[:8]),
	}, nil
}

// Embedded loads the bundled catalog.
func Embedded() (*Catalog, error) {
	return Load(embeddedPrograms)
}

// FromFile loads a catalog from disk.
func FromFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Load(raw)
}

// source loads whichever catalog the config points at.
func source(_ context.Context, cfg *config.Config) (*Catalog, error) {
	if cfg.Catalog.Path != "" {
		return FromFile(cfg.Catalog.Path)
	}
	return Embedded()
}

// All returns the records in catalog order. Callers must not modify the slice.
func (c *Catalog) All() []types.ProgramRecord {
	return c.records
}

// Len is the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// ByKey finds a record by its stable key.
func (c *Catalog) ByKey(key string) (types.ProgramRecord, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return types.ProgramRecord{}, false
	}
	return c.records[i], true
}

// Version identifies the catalog contents; it changes whenever the source bytes change.
func (c *Catalog) Version() string {
	return c.version
}

// recordKey hashes the normalized address together with program type and region so two
// programs meeting at one address still get different keys.
func recordKey(p types.ProgramRecord) string {
	fnv := fnv.New64a()
	lo.Must(io.WriteString(fnv, normalize(p.FullAddress())))
	lo.Must(io.WriteString(fnv, "|"+normalize(p.ProgramType)))
	lo.Must(io.WriteString(fnv, "|"+normalize(p.Region)))
	return base64.RawURLEncoding.EncodeToString(fnv.Sum(nil))
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
