package gridwarp

import (
	"math"
)

// DType is one of the supported sample data types of a raster.
type DType int

// Supported DataTypes
const (
	DTypeUNDEFINED DType = iota
	DTypeUINT8
	DTypeUINT16
	DTypeUINT32
	DTypeINT8
	DTypeINT16
	DTypeINT32
	DTypeFLOAT32
	DTypeFLOAT64
)

var dtypeNames = [...]string{"UNDEFINED", "UINT8", "UINT16", "UINT32", "INT8", "INT16", "INT32", "FLOAT32", "FLOAT64"}

var minValues = [...]float64{-math.MaxFloat64, 0, 0, 0, math.MinInt8, math.MinInt16, math.MinInt32, -math.MaxFloat32, -math.MaxFloat64}

var maxValues = [...]float64{math.MaxFloat64, math.MaxUint8, math.MaxUint16, math.MaxUint32, math.MaxInt8, math.MaxInt16, math.MaxInt32,
	math.MaxFloat32, math.MaxFloat64}

func (dtype DType) String() string {
	if dtype < 0 || int(dtype) >= len(dtypeNames) {
		return "UNDEFINED"
	}
	return dtypeNames[dtype]
}

// MinValue returns the lowest value representable by the data type.
func (dtype DType) MinValue() float64 {
	return minValues[dtype]
}

// MaxValue returns the highest value representable by the data type.
func (dtype DType) MaxValue() float64 {
	return maxValues[dtype]
}

// Size returns the size in bytes of one sample.
func (dtype DType) Size() int {
	switch dtype {
	case DTypeUINT8, DTypeINT8:
		return 1
	case DTypeUINT16, DTypeINT16:
		return 2
	case DTypeUINT32, DTypeINT32, DTypeFLOAT32:
		return 4
	case DTypeFLOAT64:
		return 8
	default:
		return 0
	}
}

// IsFloatingPointFormat returns true for data types able to store NaN.
func (dtype DType) IsFloatingPointFormat() bool {
	switch dtype {
	case DTypeFLOAT32, DTypeFLOAT64:
		return true
	}
	return false
}

// CanCastTo returns true if the data type can be cast to dtypeTo without
// restriction on the value range.
func (dtype DType) CanCastTo(dtypeTo DType) bool {
	if dtype == dtypeTo {
		return true
	}
	return dtype != DTypeUNDEFINED && dtypeTo != DTypeUNDEFINED &&
		dtype.MinValue() >= dtypeTo.MinValue() && dtype.MaxValue() <= dtypeTo.MaxValue()
}
