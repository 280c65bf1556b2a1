package watching

import (
	"testing"
)

// TestPortableSourceOverflow tests that excess pending records are replaced by
// a single overflow record.
func TestPortableSourceOverflow(t *testing.T) {
	opened, err := openPortableSource(SourceOptions{ReadBufferSize: 2 * recordSizeEstimate})
	if err != nil {
		t.Fatal("unable to open source:", err)
	}
	defer opened.Close()
	source := opened.(*portableSource)

	source.lock.Lock()
	for i := 0; i < 5; i++ {
		source.enqueue(Record{Handle: 1, Mask: MaskCreate, Name: "x"})
	}
	source.lock.Unlock()

	records, err := source.Read()
	if err != nil {
		t.Fatal("unable to read records:", err)
	}
	if len(records) != 3 {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[2].Mask != MaskOverflow || records[2].Handle != overflowHandle {
		t.Error("overflow record not appended:", records[2])
	}
	if records, _ := source.Read(); len(records) != 0 {
		t.Error("records remain after read:", records)
	}
}

// TestPortableSourceSignal tests cancellation and closure behavior.
func TestPortableSourceSignal(t *testing.T) {
	source, err := openPortableSource(SourceOptions{})
	if err != nil {
		t.Fatal("unable to open source:", err)
	}
	handle, err := source.AddWatch(t.TempDir())
	if err != nil {
		t.Fatal("unable to add watch:", err)
	}
	if err := source.RemoveWatch(handle); err != nil {
		t.Error("unable to remove watch:", err)
	}
	if err := source.RemoveWatch(handle); err != nil {
		t.Error("repeated removal failed:", err)
	}

	source.Signal()
	if readiness, err := source.Wait(); err != nil || readiness != ReadinessCancelled {
		t.Error("unexpected readiness:", readiness, err)
	}

	if err := source.Close(); err != nil {
		t.Error("unable to close source:", err)
	}
	source.Signal()
	if err := source.Close(); err != nil {
		t.Error("repeated close failed:", err)
	}
}
