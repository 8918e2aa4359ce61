package memory_test

import (
	"testing"

	"github.com/kilianp07/haulshare/core/store"
	"github.com/kilianp07/haulshare/core/store/storetest"
	"github.com/kilianp07/haulshare/infra/store/memory"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memory.New()
	})
}
