package rastvec

import "errors"

var (
	ErrGdalDriverCreate = errors.New("gdal driver create err")
	ErrGdalDriverOpen   = errors.New("gdal driver open err")
	ErrOpenRaster       = errors.New("gdal open raster err")
	ErrEmptyTif         = errors.New("empty tif")
	ErrTifReadFailed    = errors.New("tif read failed")
	ErrTooManyBands     = errors.New("raster has more bands than labels")
	ErrInvalidLabel     = errors.New("invalid band label")
	ErrNoRaster         = errors.New("no raster found in input dir")
	ErrDuplicateRaster  = errors.New("raster output name already taken")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrInvalidTable     = errors.New("invalid pixel table")
	ErrNothingToMerge   = errors.New("nothing to merge")
	ErrDuplicateField   = errors.New("duplicate merge field")
	ErrMissingField     = errors.New("field missing in layer")
	ErrUnknownEncoding  = errors.New("unknown csv encoding")
)
