package session

import (
	"fmt"
	"sort"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/ternarybob/larder/internal/models"
)

// Legacy migration shim.
//
// Earlier deployments stored the session as a Python pickle of a flat
// {name: value} dict. DecodeLegacyPickle reads exactly that shape so the
// file can be converted once; Decode never falls back to it.

// PROTO opcode; every pickle from protocol 2 on starts with it
const pickleProto = 0x80

// DecodeLegacyPickle converts a pickled dict[str, str] into cookies.
// Only name and value exist in that format; domain and path are left empty
// and resolve to the upstream host at request time. Cookies are ordered by name.
func DecodeLegacyPickle(data []byte) ([]models.Cookie, error) {
	if len(data) < 2 || data[0] != pickleProto {
		return nil, fmt.Errorf("%w: not a pickle stream", models.ErrFormat)
	}

	obj, err := pickle.Loads(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFormat, err)
	}

	dict, ok := obj.(*types.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: top-level object is %T, not a dict", models.ErrFormat, obj)
	}

	values := make(map[string]string, dict.Len())
	names := make([]string, 0, dict.Len())
	for _, key := range dict.Keys() {
		name, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("%w: dict key %v is not a string", models.ErrFormat, key)
		}
		raw, _ := dict.Get(key)
		value, ok := raw.(string)
		if !ok {
			// None or non-string values carry nothing replayable
			continue
		}
		if _, seen := values[name]; !seen {
			names = append(names, name)
		}
		values[name] = value
	}
	sort.Strings(names)

	cookies := make([]models.Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, models.Cookie{Name: name, Value: values[name]})
	}
	return cookies, nil
}
