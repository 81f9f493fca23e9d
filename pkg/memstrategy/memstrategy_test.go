package memstrategy

import "testing"

func TestChooseSmallFileBuffers(t *testing.T) {
	if got := Choose(1024, 16*1024*1024*1024, 0); got != BufferStrategy {
		t.Fatalf("Choose(1KiB) = %s, want buffer", got)
	}
}

func TestChooseMidSizeFileWithAmpleMemoryMmaps(t *testing.T) {
	const oneGiB = 1024 * 1024 * 1024
	got := Choose(500*1024*1024, 16*oneGiB, 0)
	if got != MmapStrategy {
		t.Fatalf("Choose(500MiB, 16GiB avail) = %s, want mmap", got)
	}
}

func TestChooseLargeFileWithTightMemoryStreams(t *testing.T) {
	const oneGiB = 1024 * 1024 * 1024
	got := Choose(4*oneGiB, 2*oneGiB, 0) // budget = 0.25 * 2GiB = 512MiB < 4GiB
	if got != StreamStrategy {
		t.Fatalf("Choose(4GiB, 2GiB avail) = %s, want stream", got)
	}
}

func TestChooseHugeFileWithAmpleMemoryStillMmaps(t *testing.T) {
	// spec §4.4's decision table is purely N vs the memory budget M — there
	// is no separate absolute size ceiling on the mmap path, so a huge file
	// still mmaps as long as it fits within the budget.
	const oneGiB = 1024 * 1024 * 1024
	got := Choose(100*oneGiB, 1000*oneGiB, 0)
	if got != MmapStrategy {
		t.Fatalf("Choose(100GiB, 1000GiB avail) = %s, want mmap", got)
	}
}

func TestChooseHugeFileExceedingBudgetStreams(t *testing.T) {
	const oneGiB = 1024 * 1024 * 1024
	got := Choose(100*oneGiB, 10*oneGiB, 0) // budget = 0.25 * 10GiB = 2.5GiB < 100GiB
	if got != StreamStrategy {
		t.Fatalf("Choose(100GiB, 10GiB avail) = %s, want stream", got)
	}
}

func TestChooseRespectsExplicitFraction(t *testing.T) {
	const oneGiB = 1024 * 1024 * 1024
	// 100MiB input, 1GiB available: default 0.25 fraction (256MiB budget)
	// would mmap, but a tight 0.05 fraction (51MiB budget) forces streaming.
	got := Choose(100*1024*1024, oneGiB, 0.05)
	if got != StreamStrategy {
		t.Fatalf("Choose with fraction=0.05 = %s, want stream", got)
	}
}

func TestCheckBudgetRejectsOversizedEstimate(t *testing.T) {
	total, err := TotalMemory()
	if err != nil {
		t.Skipf("cannot read system memory in this environment: %v", err)
	}
	if err := CheckBudget(total*10, 0); err == nil {
		t.Fatal("expected CheckBudget to reject an estimate far exceeding total RAM")
	}
}

func TestCheckBudgetHonorsExplicitFraction(t *testing.T) {
	total, err := TotalMemory()
	if err != nil {
		t.Skipf("cannot read system memory in this environment: %v", err)
	}
	estimate := uint64(float64(total) * 0.1)
	if err := CheckBudget(estimate, 0.05); err == nil {
		t.Fatal("expected CheckBudget to reject an estimate exceeding a tight 0.05 fraction")
	}
	if err := CheckBudget(estimate, 0.5); err != nil {
		t.Fatalf("CheckBudget with generous 0.5 fraction = %v, want nil", err)
	}
}
