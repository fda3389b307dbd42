package rastvec

import (
	"strconv"
	"strings"

	"github.com/wgdzlh/rastvec/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

type GdalToolbox struct {
	cfg    *Config
	logTag string
}

// 由GDAL库C语言创建的内存对象，需要手动调用Destroy回收
type destroyable interface {
	Destroy()
}

// 初始化GDAL工具箱，cfg需已ApplyDefaults
func NewGdalToolbox(cfg *Config) *GdalToolbox {
	if cfg == nil {
		cfg = &Config{}
		cfg.ApplyDefaults()
	}
	return &GdalToolbox{
		cfg:    cfg,
		logTag: "GdalToolbox:",
	}
}

func (g *GdalToolbox) Config() *Config {
	return g.cfg
}

// 由栅格投影WKT创建坐标系，调用方负责Destroy
func (g *GdalToolbox) getRasterRef(wkt string) (ref gdal.SpatialReference) {
	ref = gdal.CreateSpatialReference(wkt)
	// 输出矢量沿用栅格的(x,y)次序，避免地理坐标系下轴序倒置
	ref.SetAxisMappingStrategy(gdal.OAMS_TraditionalGisOrder)
	return
}

// 从坐标系中解析EPSG代码，仅用于日志
func (g *GdalToolbox) getSrid(sp gdal.SpatialReference) (srid int, ok bool) {
	rawId, found := sp.AttrValue("AUTHORITY", 1)
	if !found {
		wkt, _ := sp.ToWKT()
		if strings.Contains(wkt, "CGCS_2000") {
			rawId = "4490"
		} else {
			return
		}
	}
	srid, err := strconv.Atoi(rawId)
	if err != nil {
		log.Debug(g.logTag+"srid not numeric", zap.String("id", rawId))
		return
	}
	ok = true
	return
}

func destroyAll(gc []destroyable) {
	for _, v := range gc {
		v.Destroy()
	}
}
