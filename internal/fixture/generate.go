package fixture

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Generator kinds accepted in a suite's generate block.
const (
	KindCompany = "company"
	KindStreet  = "street_address"
	KindNumeric = "numeric" // numeric:N
	KindUUID    = "uuid"
	KindWord    = "word"
	KindEmail   = "email"
	KindName    = "name"
)

// Generate resolves every generator once. Names are visited in sorted order so a
// non-zero seed yields the same values on every run.
func Generate(specs map[string]string, seed int64) (map[string]string, error) {
	f := gofakeit.New(seed)

	names := make([]string, 0, len(specs))
	for k := range specs {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make(map[string]string, len(specs))
	for _, name := range names {
		v, err := generateOne(f, specs[name])
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// ValidKind reports whether kind is a generator Generate understands.
func ValidKind(kind string) bool {
	_, err := generateOne(gofakeit.New(1), kind)
	return err == nil
}

func generateOne(f *gofakeit.Faker, kind string) (string, error) {
	kind = strings.TrimSpace(kind)
	switch kind {
	case KindCompany:
		return f.Company(), nil
	case KindStreet:
		return f.Street(), nil
	case KindUUID:
		return f.UUID(), nil
	case KindWord:
		return f.Word(), nil
	case KindEmail:
		return f.Email(), nil
	case KindName:
		return f.Name(), nil
	}
	if rest, ok := strings.CutPrefix(kind, KindNumeric+":"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("bad digit count in %q", kind)
		}
		return f.Numerify(strings.Repeat("#", n)), nil
	}
	return "", fmt.Errorf("unknown generator %q", kind)
}

// Builtins are refreshed for every scenario.
func Builtins() map[string]string {
	return map[string]string{
		"uuid": uuid.NewString(),
		"now":  time.Now().UTC().Format(time.RFC3339),
	}
}
