package rastvec

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/wgdzlh/rastvec/log"
	"github.com/wgdzlh/rastvec/utils"

	"go.uber.org/zap"
)

// 像元表，按扫描顺序累积保留像元；实现PixelSink
type PixelTable struct {
	Labels []string
	Rows   []*PixelRecord
}

func NewPixelTable(labels []string) *PixelTable {
	return &PixelTable{Labels: labels}
}

func (t *PixelTable) WritePixel(rec *PixelRecord) error {
	if len(rec.Values) != len(t.Labels) {
		return fmt.Errorf("%w: pixel %d has %d bands, table has %d columns", ErrInvalidTable, rec.ID, len(rec.Values), len(t.Labels))
	}
	t.Rows = append(t.Rows, rec)
	return nil
}

func (t *PixelTable) Header() []string {
	return append([]string{SHP_FIELD_PIXEL_ID, SHP_FIELD_X, SHP_FIELD_Y}, t.Labels...)
}

// cleaned为false时写原始波段值（空值记为NaN），为true时写整数值（空值留空）
func (t *PixelTable) Encode(w io.Writer, cleaned bool) (err error) {
	cw := csv.NewWriter(w)
	if err = cw.Write(t.Header()); err != nil {
		return
	}
	line := make([]string, 3+len(t.Labels))
	for _, rec := range t.Rows {
		line[0] = strconv.FormatInt(rec.ID, 10)
		line[1] = FormatCoord(rec.X)
		line[2] = FormatCoord(rec.Y)
		for i, v := range rec.Values {
			switch {
			case cleaned && v.Null:
				line[3+i] = ""
			case cleaned:
				line[3+i] = strconv.FormatInt(v.Int, 10)
			case v.Null:
				line[3+i] = NULL_PLACEHOLD
			default:
				line[3+i] = strconv.FormatFloat(rec.Raw[i], 'f', -1, 64)
			}
		}
		if err = cw.Write(line); err != nil {
			return
		}
	}
	cw.Flush()
	return cw.Error()
}

// 写出csv，覆盖已有文件
func (t *PixelTable) WriteCSV(path string, cleaned bool, enc string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = e
		}
	}()
	bw := bufio.NewWriter(f)
	ew := utils.EncodingWriter(bw, enc)
	if err = t.Encode(ew, cleaned); err != nil {
		return
	}
	if err = ew.Close(); err != nil {
		return
	}
	if err = bw.Flush(); err != nil {
		return
	}
	log.Info("PixelTable:csv saved", zap.String("csv", path), zap.Bool("cleaned", cleaned), zap.Int("rows", len(t.Rows)))
	return
}

// 读取矢量化csv表（原始表或清洗表均可）
func ReadPixelTable(path, enc string) (t *PixelTable, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	return DecodePixelTable(utils.DecodingReader(bufio.NewReader(f), enc))
}

func DecodePixelTable(r io.Reader) (t *PixelTable, err error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		err = fmt.Errorf("%w: read header: %v", ErrInvalidTable, err)
		return
	}
	if len(header) < 3 {
		err = fmt.Errorf("%w: %d columns", ErrInvalidTable, len(header))
		return
	}
	header[0] = utils.TrimBOM(header[0])
	if header[0] != SHP_FIELD_PIXEL_ID || header[1] != SHP_FIELD_X || header[2] != SHP_FIELD_Y {
		err = fmt.Errorf("%w: unexpected header %v", ErrInvalidTable, header[:3])
		return
	}
	t = &PixelTable{Labels: header[3:]}
	for ln := 2; ; ln++ {
		var line []string
		if line, err = cr.Read(); err == io.EOF {
			err = nil
			return
		} else if err != nil {
			return
		}
		rec := &PixelRecord{
			Raw:    make([]float64, len(t.Labels)),
			Values: make([]BandValue, len(t.Labels)),
		}
		if rec.ID, err = strconv.ParseInt(line[0], 10, 64); err != nil {
			err = fmt.Errorf("%w: line %d: %v", ErrInvalidTable, ln, err)
			return
		}
		if rec.X, err = strconv.ParseFloat(line[1], 64); err != nil {
			err = fmt.Errorf("%w: line %d: %v", ErrInvalidTable, ln, err)
			return
		}
		if rec.Y, err = strconv.ParseFloat(line[2], 64); err != nil {
			err = fmt.Errorf("%w: line %d: %v", ErrInvalidTable, ln, err)
			return
		}
		for i, cell := range line[3:] {
			if cell == "" {
				rec.Raw[i] = math.NaN()
				rec.Values[i] = BandValue{Null: true}
				continue
			}
			var v float64
			if v, err = strconv.ParseFloat(cell, 64); err != nil {
				err = fmt.Errorf("%w: line %d: %v", ErrInvalidTable, ln, err)
				return
			}
			rec.Raw[i] = v
			rec.Values[i] = truncBand(v)
		}
		t.Rows = append(t.Rows, rec)
	}
}
