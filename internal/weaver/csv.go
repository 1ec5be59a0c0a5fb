package weaver

import (
	"bufio"
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/calvinalkan/bead/internal/bead"
)

// ErrInvalidTable reports a beads or inputs table that cannot be decoded.
var ErrInvalidTable = errors.New("invalid bead table")

var (
	beadColumns  = []string{"name", "kind", "content_id", "freeze_time"}
	inputColumns = []string{"owner", "name", "kind", "content_id", "freeze_time"}
)

// ReadBeads decodes the beads table and attaches the rows of the inputs
// table to their owners. Blank lines are allowed anywhere and an empty
// input is an empty table. Columns are matched by header name.
func ReadBeads(beadsCSV, inputsCSV io.Reader) ([]Bead, error) {
	var beads []Bead

	owners := make(map[string]int)

	err := readTable(beadsCSV, "beads", beadColumns, func(row map[string]string) error {
		ft, err := bead.ParseFreezeTime(row["freeze_time"])
		if err != nil {
			return err
		}

		if _, ok := owners[row["content_id"]]; !ok {
			owners[row["content_id"]] = len(beads)
		}

		beads = append(beads, Bead{
			Name:       row["name"],
			Kind:       row["kind"],
			ContentID:  row["content_id"],
			FreezeTime: ft,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readTable(inputsCSV, "inputs", inputColumns, func(row map[string]string) error {
		owner, ok := owners[row["owner"]]
		if !ok {
			return fmt.Errorf("owner %s is not in the beads table", row["owner"])
		}

		ft, err := bead.ParseFreezeTime(row["freeze_time"])
		if err != nil {
			return err
		}

		beads[owner].Inputs = append(beads[owner].Inputs, bead.Input{
			Name:       row["name"],
			Kind:       row["kind"],
			ContentID:  row["content_id"],
			FreezeTime: ft,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return beads, nil
}

func readTable(r io.Reader, table string, columns []string, handle func(row map[string]string) error) error {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: %s: header: %w", ErrInvalidTable, table, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("%w: %s: missing column %q", ErrInvalidTable, table, col)
		}
	}

	row := make(map[string]string, len(columns))

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidTable, table, err)
		}

		for _, col := range columns {
			row[col] = record[index[col]]
		}

		err = handle(row)
		if err != nil {
			line, _ := cr.FieldPos(0)

			return fmt.Errorf("%w: %s line %d: %w", ErrInvalidTable, table, line, err)
		}
	}
}

// WriteBeads encodes beads into the two tables read by [ReadBeads]. Beads
// are grouped by name and inputs by owner, groups separated by a blank line.
func WriteBeads(beads []Bead, beadsW, inputsW io.Writer) error {
	seen := make(map[string]bool, len(beads))

	// the first record of a content id wins, as in New
	sorted := make([]Bead, 0, len(beads))
	for _, b := range beads {
		if seen[b.ContentID] {
			continue
		}

		seen[b.ContentID] = true
		sorted = append(sorted, b)
	}

	slices.SortStableFunc(sorted, func(a, b Bead) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}

		return b.FreezeTime.Compare(a.FreezeTime)
	})

	beadGroups := groupBy(sorted, func(b Bead) string { return b.Name })

	err := writeTable(beadsW, beadColumns, len(beadGroups), func(i int) [][]string {
		rows := make([][]string, 0, len(beadGroups[i]))
		for _, b := range beadGroups[i] {
			rows = append(rows, []string{b.Name, b.Kind, b.ContentID, b.FreezeTime.String()})
		}

		return rows
	})
	if err != nil {
		return fmt.Errorf("write beads table: %w", err)
	}

	slices.SortStableFunc(sorted, func(a, b Bead) int { return cmp.Compare(a.ContentID, b.ContentID) })

	owners := slices.DeleteFunc(sorted, func(b Bead) bool { return len(b.Inputs) == 0 })

	err = writeTable(inputsW, inputColumns, len(owners), func(i int) [][]string {
		b := owners[i]

		rows := make([][]string, 0, len(b.Inputs))
		for _, in := range b.Inputs {
			rows = append(rows, []string{b.ContentID, in.Name, in.Kind, in.ContentID, in.FreezeTime.String()})
		}

		return rows
	})
	if err != nil {
		return fmt.Errorf("write inputs table: %w", err)
	}

	return nil
}

func groupBy(beads []Bead, key func(Bead) string) [][]Bead {
	var groups [][]Bead

	for i, b := range beads {
		if i == 0 || key(beads[i-1]) != key(b) {
			groups = append(groups, nil)
		}

		groups[len(groups)-1] = append(groups[len(groups)-1], b)
	}

	return groups
}

// writeTable writes the header and then each group followed by a blank line.
func writeTable(w io.Writer, header []string, groups int, rows func(i int) [][]string) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	err := cw.Write(header)
	if err != nil {
		return err
	}

	for i := range groups {
		err = cw.WriteAll(rows(i))
		if err != nil {
			return err
		}

		_, err = bw.WriteString("\n")
		if err != nil {
			return err
		}
	}

	cw.Flush()

	err = cw.Error()
	if err != nil {
		return err
	}

	return bw.Flush()
}
