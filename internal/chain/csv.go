package chain

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

const csvExpirationLayout = "2006-01-02"

// ContractRow is the CSV wire form of a Contract. Expiration dates use
// YYYY-MM-DD and quote times use RFC 3339.
type ContractRow struct {
	Underlying   string  `csv:"underlying"`
	Symbol       string  `csv:"symbol"`
	OptionType   string  `csv:"option_type"`
	Strike       float64 `csv:"strike"`
	Expiration   string  `csv:"expiration"`
	QuoteTime    string  `csv:"quote_time"`
	Delta        float64 `csv:"delta"`
	Bid          float64 `csv:"bid"`
	Ask          float64 `csv:"ask"`
	Last         float64 `csv:"last"`
	Volume       int64   `csv:"volume"`
	OpenInterest int64   `csv:"open_interest"`
}

// ToContract converts the wire row into the model type.
func (r *ContractRow) ToContract() (Contract, error) {
	exp, err := time.Parse(csvExpirationLayout, r.Expiration)
	if err != nil {
		return Contract{}, fmt.Errorf("row %s: bad expiration %q: %w", r.Symbol, r.Expiration, err)
	}
	quote, err := time.Parse(time.RFC3339, r.QuoteTime)
	if err != nil {
		return Contract{}, fmt.Errorf("row %s: bad quote time %q: %w", r.Symbol, r.QuoteTime, err)
	}
	return Contract{
		Symbol:       r.Symbol,
		Underlying:   r.Underlying,
		OptionType:   OptionType(strings.ToLower(r.OptionType)),
		Strike:       r.Strike,
		Expiration:   exp,
		QuoteTime:    quote.UTC(),
		Delta:        r.Delta,
		Bid:          r.Bid,
		Ask:          r.Ask,
		Last:         r.Last,
		Volume:       r.Volume,
		OpenInterest: r.OpenInterest,
	}, nil
}

func rowFromContract(c *Contract) *ContractRow {
	return &ContractRow{
		Underlying:   c.Underlying,
		Symbol:       c.Symbol,
		OptionType:   string(c.OptionType),
		Strike:       c.Strike,
		Expiration:   c.Expiration.Format(csvExpirationLayout),
		QuoteTime:    c.QuoteTime.UTC().Format(time.RFC3339),
		Delta:        c.Delta,
		Bid:          c.Bid,
		Ask:          c.Ask,
		Last:         c.Last,
		Volume:       c.Volume,
		OpenInterest: c.OpenInterest,
	}
}

// LoadSnapshots reads a chain CSV file and groups its rows into
// snapshots, one per distinct quote time, ordered chronologically. Row
// order within a snapshot follows the file, which keeps replay
// deterministic.
func LoadSnapshots(path string) ([]Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	var rows []*ContractRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}

	index := make(map[time.Time]int)
	var snaps []Snapshot
	for _, row := range rows {
		c, err := row.ToContract()
		if err != nil {
			return nil, err
		}
		i, ok := index[c.QuoteTime]
		if !ok {
			i = len(snaps)
			index[c.QuoteTime] = i
			snaps = append(snaps, Snapshot{Underlying: c.Underlying})
		}
		snaps[i].Contracts = append(snaps[i].Contracts, c)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].QuoteTime().Before(snaps[j].QuoteTime())
	})
	return snaps, nil
}

// WriteCSV writes contracts to path in the layout LoadSnapshots reads.
func WriteCSV(path string, contracts []Contract) error {
	rows := make([]*ContractRow, 0, len(contracts))
	for i := range contracts {
		rows = append(rows, rowFromContract(&contracts[i]))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
