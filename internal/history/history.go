package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tp-tracker/internal/types"
)

// History maps "{item_id}-{order_type}" to the last unit price a new price alert was sent for
type History map[string]int64

// Key builds the history key of an item and order side
func Key(itemID int, orderType types.OrderType) string {
	return fmt.Sprintf("%d-%s", itemID, orderType)
}

// Get returns the last notified price of the item side
func (h History) Get(itemID int, orderType types.OrderType) (int64, bool) {
	price, ok := h[Key(itemID, orderType)]
	return price, ok
}

// Set records price as the last notified price of the item side
func (h History) Set(itemID int, orderType types.OrderType, price int64) {
	h[Key(itemID, orderType)] = price
}

// Load reads the history file at path. A missing file is created empty.
func Load(path string) (History, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		h := History{}
		if err := h.Save(path); err != nil {
			return nil, errors.Wrap(err, "could not create history file")
		}
		log.Infof("Created empty history file %s", path)
		return h, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read history file %s", path)
	}

	h := History{}
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, errors.Wrapf(err, "could not parse history file %s", path)
	}
	if h == nil {
		// the file held a JSON null
		h = History{}
	}

	return h, nil
}

// Save writes the whole history to a temporary file next to path and renames it over path,
// so a crash mid-write leaves the previous file intact.
func (h History) Save(path string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode history")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "could not create history directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "could not create temporary history file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not write history")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not sync history")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not close history")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "could not replace history file %s", path)
	}
	return nil
}
