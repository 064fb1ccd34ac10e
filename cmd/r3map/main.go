package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	maptools "github.com/quakeman22/Rayman-3-Map-Tools"
	"github.com/quakeman22/Rayman-3-Map-Tools/tilemap"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

const defaultDB = "r3map.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// readResource loads the file named by the first argument and works out
// the resource window; a size of 0 means the rest of the file past the
// offset.
func readResource(c *cli.Context) ([]byte, int, int, error) {
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return nil, 0, 0, err
	}

	offset := c.Int("offset")
	size := c.Int("size")
	if size == 0 {
		size = len(data) - offset
	}

	return data, offset, size, nil
}

type exportedMap struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Defaulted int     `json:"defaulted,omitempty"`
	Visual    [][]int `json:"visual"`
	Collision [][]int `json:"collision"`
}

func exportRows(m [][]byte) [][]int {
	out := make([][]int, len(m))
	for y, row := range m {
		out[y] = make([]int, len(row))
		for x, v := range row {
			out[y][x] = int(v)
		}
	}
	return out
}

func main() {
	app := cli.NewApp()

	app.Name = "r3map"
	app.Usage = "Rayman 3 map resource utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"R3MAP_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalogue database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	window := []cli.Flag{
		&cli.IntFlag{
			Name:  "offset",
			Usage: "resource offset within the file",
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "resource size in bytes, 0 for the rest of the file",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Show the header and decode diagnostics of a map resource",
			ArgsUsage: "FILE",
			Flags:     window,
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				data, offset, size, err := readResource(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				m, err := tilemap.Decode(data, offset, size)
				if err != nil {
					return cli.Exit(err, 1)
				}

				h := m.Header
				fmt.Printf("chunk size: %dx%d tiles\n", h.ChunkWidth, h.ChunkHeight)
				fmt.Printf("map size: %dx%d chunks, %dx%d tiles\n", h.MapWidth, h.MapHeight, m.Width, m.Height)
				fmt.Printf("tiles per chunk: %d\n", h.TilesPerChunk)
				fmt.Printf("doublets: %d\n", h.Doublets)
				if m.Stats.StrideMismatch {
					fmt.Printf("stride mismatch: stored %d, derived %d\n", h.TilesPerChunk, h.ChunkWidth*h.ChunkHeight)
				}
				if m.Stats.Defaulted() > 0 {
					fmt.Printf("defaulted reads: %d index, %d visual, %d collision\n",
						m.Stats.DefaultedIndex, m.Stats.DefaultedVisual, m.Stats.DefaultedCollision)
				}

				return nil
			},
		},
		{
			Name:      "export",
			Usage:     "Decode a map resource to JSON",
			ArgsUsage: "FILE",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "write to file instead of standard output",
				},
			}, window...),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				data, offset, size, err := readResource(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				m, err := tilemap.Decode(data, offset, size)
				if err != nil {
					return cli.Exit(err, 1)
				}

				b, err := json.MarshalIndent(exportedMap{
					Width:     m.Width,
					Height:    m.Height,
					Defaulted: m.Stats.Defaulted(),
					Visual:    exportRows(m.Visual),
					Collision: exportRows(m.Collision),
				}, "", "  ")
				if err != nil {
					return cli.Exit(err, 1)
				}
				b = append(b, '\n')

				if output := c.String("output"); output != "" {
					if err := os.WriteFile(output, b, 0o644); err != nil {
						return cli.Exit(err, 1)
					}
					return nil
				}
				if _, err := os.Stdout.Write(b); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "scan",
			Usage:     "Scan a directory tree and catalogue every map resource",
			ArgsUsage: "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				m, err := maptools.New(c.String("db"), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer m.Close()

				if err := m.Scan(c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:  "verify",
			Usage: "Re-decode every catalogued resource and report mismatches",
			Action: func(c *cli.Context) error {
				m, err := maptools.New(c.String("db"), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer m.Close()

				total, err := m.CountMaps()
				if err != nil {
					return cli.Exit(err, 1)
				}

				bar := progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowIts(),
					progressbar.OptionShowCount(),
				)

				mismatches, err := m.Verify(func(string) {
					bar.Add(1)
				})
				bar.Finish()
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return cli.Exit(err, 1)
				}

				if mismatches > 0 {
					return cli.Exit(fmt.Sprintf("%d maps do not match the catalogue", mismatches), 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
