package badger

import (
	"encoding/json"
	"errors"

	badger "github.com/dgraph-io/badger/v3"
)

func getJSON[E any](txn *badger.Txn, key []byte) (bool, *E, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}

	var valCopy []byte
	err = item.Value(func(val []byte) error {
		valCopy = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	var elem E
	if err := json.Unmarshal(valCopy, &elem); err != nil {
		return false, nil, err
	}

	return true, &elem, nil
}

func setJSON(txn *badger.Txn, key []byte, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return txn.SetEntry(badger.NewEntry(key, b))
}

// iterPrefix decodes every value under prefix in key order.
func iterPrefix[E any](txn *badger.Txn, prefix []byte, applyFunc func(E) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var elem E
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &elem)
		})
		if err != nil {
			return err
		}

		if err := applyFunc(elem); err != nil {
			return err
		}
	}

	return nil
}

func countPrefix(txn *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	count := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}

	return count
}
