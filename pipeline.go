package maptools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/quakeman22/Rayman-3-Map-Tools/tilemap"
)

const (
	mapExtension = ".map"
	scanWorkers  = 10
)

func (m *MapTools) findMaps(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Skip hidden files and directories so indexers and the like
			// are left alone.
			if info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() || filepath.Ext(file) != mapExtension {
				return nil
			}

			// Ignore any file greater than 1 MB, well past the largest
			// possible resource.
			if info.Size() > 1<<(10*2) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (m *MapTools) mapWorker(ctx context.Context, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			data, err := os.ReadFile(file)
			if err != nil {
				errc <- err
				return
			}

			// Not everything carrying the extension is a map resource;
			// anything without a usable header is noted and skipped.
			decoded, err := tilemap.Decode(data, 0, len(data))
			if err != nil {
				m.logger.Printf("skipping \"%s\": %v\n", file, err)
				continue
			}

			if n := decoded.Stats.Defaulted(); n > 0 {
				m.logger.Printf("\"%s\" decoded with %d defaulted reads\n", file, n)
			}

			id, err := m.db.addResource(file, 0, int64(len(data)), crcBytes(data))
			if err != nil {
				errc <- err
				return
			}

			if err := m.db.addMap(id, decoded); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan walks a directory tree for map resources and catalogues every one
// that decodes.
func (m *MapTools) Scan(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := m.findMaps(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < scanWorkers; i++ {
		errc, err := m.mapWorker(ctx, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	if err := waitForPipeline(errcList...); err != nil {
		return err
	}

	n, err := m.db.CountMaps()
	if err != nil {
		return err
	}
	m.logger.Printf("catalogue holds %d maps\n", n)

	return nil
}
