package liststore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// fakeKV is an in-memory stand-in for storage.Storage so list tests don't
// need a badger directory.
type fakeKV struct {
	lock sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Close() error { return nil }

func (f *fakeKV) Exist(key []byte) (bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	_, ok := f.data[string(key)]
	return ok, nil
}

func (f *fakeKV) GetKey(key []byte) ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	v, ok := f.data[string(key)]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return append([]byte{}, v...), nil
}

func (f *fakeKV) Set(key, value []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.data[string(key)] = append([]byte{}, value...)
	return nil
}

func (f *fakeKV) Delete(key []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.data, string(key))
	return nil
}

func (f *fakeKV) FirstKVHasPrefix(prefix []byte) ([]byte, []byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, nil, nil
	}
	sort.Strings(keys)
	return []byte(keys[0]), append([]byte{}, f.data[keys[0]]...), nil
}

func (f *fakeKV) CountKeysByPrefix(prefix []byte) (int64, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	total := int64(0)
	for k := range f.data {
		if strings.HasPrefix(k, string(prefix)) {
			total++
		}
	}
	return total, nil
}

func (f *fakeKV) GetCounter(key []byte, defaultValue uint64) (uint64, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	v, ok := f.data[string(key)]
	if !ok {
		return defaultValue, nil
	}

	var n uint64
	if _, err := fmt.Sscanf(string(v), "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (f *fakeKV) SetCounter(key []byte, value uint64) error {
	return f.Set(key, []byte(fmt.Sprintf("%d", value)))
}

func (f *fakeKV) Vacuum() error  { return nil }
func (f *fakeKV) DbPath() string { return "" }
