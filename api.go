package rastvec

import "time"

// 加载到内存中的栅格
type Grid struct {
	Width        int
	Height       int
	GeoTransform [6]float64 // originX, pixelW, rotX, originY, rotY, pixelH
	Projection   string     // 坐标系WKT
	Bands        [][]float64
}

func (g *Grid) BandCount() int {
	return len(g.Bands)
}

func (g *Grid) OriginX() float64    { return g.GeoTransform[0] }
func (g *Grid) PixelWidth() float64 { return g.GeoTransform[1] }
func (g *Grid) OriginY() float64    { return g.GeoTransform[3] }
func (g *Grid) PixelHeight() float64 {
	return g.GeoTransform[5]
}

// 截断后的波段整数值，Null表示原值为NaN/Inf
type BandValue struct {
	Int  int64
	Null bool
}

// 保留像元
type PixelRecord struct {
	ID     int64
	Row    int
	Col    int
	X      float64 // 像元左上角
	Y      float64
	Raw    []float64
	Values []BandValue
}

// 像元接收方（矢量图层、表格）
type PixelSink interface {
	WritePixel(rec *PixelRecord) error
}

// 单个栅格的处理结果
type FileResult struct {
	Raster  string
	Name    string
	Pixels  int64
	Outputs []string
	Elapsed time.Duration
	Err     error
}

func (r FileResult) Ok() bool {
	return r.Err == nil
}

// 批处理结果，Results与发现顺序一致
type Report struct {
	Results   []FileResult
	Succeeded int
	Failed    int
}

// 坐标合并的输入
type MergeInput struct {
	Path   string   `yaml:"path"`
	Layer  string   `yaml:"layer"`   // 矢量源的图层名，为空取第一个
	XField string   `yaml:"x_field"` // 默认 x_coord
	YField string   `yaml:"y_field"` // 默认 y_coord
	Fields []string `yaml:"fields"`
}
