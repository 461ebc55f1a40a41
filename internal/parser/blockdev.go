package parser

import (
	"fmt"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

// lsblkDefaultHeader is the column layout of plain lsblk.
var lsblkDefaultHeader = []string{"NAME", "MAJ:MIN", "RM", "SIZE", "RO", "TYPE", "MOUNTPOINTS"}

type blockDeviceExtractor struct{}

func (blockDeviceExtractor) Format() Format { return FormatBlockDevices }

// Extract reads lsblk rows using the column header to locate fields, so
// "lsblk -o NAME,TYPE,SIZE" works as well as the default layout. Tree
// drawing characters are stripped from device names.
func (blockDeviceExtractor) Extract(raw string) Extraction {
	cols := columnIndex(lsblkDefaultHeader)
	devices := []map[string]string{}
	var (
		disks, parts int
		unmounted    []string
	)

	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "NAME" {
			cols = columnIndex(fields)
			continue
		}

		name := strings.TrimLeft(fields[0], "├└│─`|- ")
		if name == "" {
			continue
		}
		dev := map[string]string{
			"name":       name,
			"size":       cols.get(fields, "SIZE"),
			"type":       cols.get(fields, "TYPE"),
			"mountpoint": cols.get(fields, "MOUNTPOINTS", "MOUNTPOINT"),
		}
		devices = append(devices, dev)

		switch dev["type"] {
		case "disk":
			disks++
		case "part":
			parts++
			if dev["mountpoint"] == "" {
				unmounted = append(unmounted, name)
			}
		}
	}

	var findings []model.Finding
	if len(devices) > 0 {
		findings = append(findings, finding("Block Devices",
			fmt.Sprintf("%d device(s): %d disk(s), %d partition(s)", len(devices), disks, parts), model.Info))
	}
	if len(unmounted) > 0 {
		findings = append(findings, finding("Unmounted Partitions",
			fmt.Sprintf("%d partition(s) not mounted: %s", len(unmounted), strings.Join(unmounted, ", ")), model.Low))
	}

	return Extraction{
		Structured: map[string]any{
			"devices":         devices,
			"disk_count":      disks,
			"partition_count": parts,
		},
		Findings: findings,
		Summary:  fmt.Sprintf("%d disk(s), %d partition(s)", disks, parts),
	}
}

type columns map[string]int

func columnIndex(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		c[strings.ToUpper(h)] = i
	}
	return c
}

// get returns the field under the first named column present in the
// header, or "" when the row is too short.
func (c columns) get(fields []string, names ...string) string {
	for _, n := range names {
		if i, ok := c[n]; ok {
			return fieldAt(fields, i)
		}
	}
	return ""
}
