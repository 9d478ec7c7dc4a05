package raster

import (
	"runtime"
	"sync"
)

// minRowsPerBand keeps small frames on a single goroutine.
const minRowsPerBand = 16

// ParallelRows splits [0, height) into contiguous bands and calls fn for
// each band on its own goroutine. fn must only write rows inside its band.
func ParallelRows(height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	bands := runtime.GOMAXPROCS(0)
	if limit := height / minRowsPerBand; bands > limit {
		bands = limit
	}
	if bands <= 1 {
		fn(0, height)
		return
	}

	per := (height + bands - 1) / bands
	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += per {
		y1 := min(y0+per, height)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}
