// ctconv converts a packed level collision file (.CT) into rooms/N.txt grids
// and the room links of level.yaml.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pgesim/engine/internal/data"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: ctconv <level.CT> <level-dir>")
		os.Exit(1)
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	unpacked, err := data.Unpack(raw, data.CTSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	if len(unpacked) != data.CTSize {
		fmt.Fprintf(os.Stderr, "%s: unpacked %d bytes, want %d\n", os.Args[1], len(unpacked), data.CTSize)
		os.Exit(1)
	}
	ct := make([]int8, len(unpacked))
	for i, b := range unpacked {
		ct[i] = int8(b)
	}
	conn, rooms, err := data.SplitCollisionData(ct)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	outDir := os.Args[2]
	roomDir := filepath.Join(outDir, "rooms")
	if err := os.MkdirAll(roomDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Only rooms with a wall or trigger get a file; missing rooms load as open.
	written := 0
	for r := range rooms {
		empty := true
		for _, c := range rooms[r] {
			if c != 0 {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		if err := data.WriteRoomFile(roomDir, r, &rooms[r]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		written++
	}

	links := conn.Links()
	out, err := yaml.Marshal(struct {
		Rooms []data.RoomLink `yaml:"rooms"`
	}{links})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	linkPath := filepath.Join(outDir, "rooms.yaml")
	header := fmt.Sprintf("# Room links, auto-generated from %s (%d rooms); merge into level.yaml\n", filepath.Base(os.Args[1]), len(links))
	if err := os.WriteFile(linkPath, append([]byte(header), out...), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d room grids to %s and %d room links to %s\n", written, roomDir, len(links), linkPath)
}
