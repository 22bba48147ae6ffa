package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/xhad/finsight/internal/models"
	"github.com/xhad/finsight/internal/types"
)

const (
	SourceSEC      = "SEC"
	secArchiveBase = "https://www.sec.gov/Archives/edgar/data"
	secDateLayout  = "20060102"
)

// SECLoader reads filings from <data_dir>/sec_filings/<type>/<symbol>/*.txt.
// The trailing underscore-separated segment of each file stem is the filing
// date as YYYYMMDD.
type SECLoader struct {
	dataDir string
	logger  *log.Logger
}

func newSECLoader(cfg Config) (types.Loader, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("%w: sec loader requires a data directory", models.ErrInvalidInput)
	}
	return &SECLoader{dataDir: cfg.DataDir, logger: cfg.Logger}, nil
}

func (l *SECLoader) Name() string { return string(KindSEC) }

func (l *SECLoader) Load(ctx context.Context, q models.LoadQuery) ([]models.Record, error) {
	q, err := validateQuery(q, true)
	if err != nil {
		return nil, err
	}

	dir, ok, err := l.filingDir(q)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.logger.Debug().Str("symbol", q.Symbol).Str("filing_type", q.FilingType).Msg("no filing directory")
		return []models.Record{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, upstream("read filing directory", err)
	}

	symbol := strings.ToUpper(q.Symbol)
	records := make([]models.Record, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, upstream("load sec filings", err)
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}

		date, err := filingDate(entry.Name())
		if err != nil {
			l.logger.Warn().Str("file", entry.Name()).Err(err).Msg("skipping filing with malformed date")
			continue
		}

		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, upstream("read filing "+entry.Name(), err)
		}

		records = append(records, models.Record{
			Symbol:     symbol,
			FilingType: q.FilingType,
			Date:       date,
			Content:    string(content),
			Source:     SourceSEC,
			URL:        fmt.Sprintf("%s/%s/%s", secArchiveBase, symbol, entry.Name()),
			Path:       path,
		})
	}

	return newestFirst(records, q.Limit), nil
}

// filingDir finds the directory for the symbol as given, then upper-cased.
func (l *SECLoader) filingDir(q models.LoadQuery) (string, bool, error) {
	candidates := []string{q.Symbol}
	if upper := strings.ToUpper(q.Symbol); upper != q.Symbol {
		candidates = append(candidates, upper)
	}

	for _, sym := range candidates {
		dir := filepath.Join(l.dataDir, "sec_filings", q.FilingType, sym)
		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, upstream("stat filing directory", err)
		}
		if info.IsDir() {
			return dir, true, nil
		}
	}
	return "", false, nil
}

func filingDate(name string) (time.Time, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(stem, "_")
	return time.Parse(secDateLayout, parts[len(parts)-1])
}
