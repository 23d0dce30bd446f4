package geo

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/anabrs1/TELMA-CS/internal/fsutil"
	"github.com/anabrs1/TELMA-CS/internal/monitoring"
)

// Layers are stored one per file as a single two-dimensional variable
// in NetCDF classic format, with the GDAL-style geotransform and the
// nodata sentinel attached as variable attributes.
const (
	attrTransform = "geotransform"
	attrNoData    = "nodata"
)

// WriteLayer persists a layer. The write is atomic: the file is
// produced under a temporary sibling name and renamed into place only
// once fully written, so a failure never leaves a partial raster.
func WriteLayer(path string, l *Layer) error {
	if err := l.Transform.Validate(); err != nil {
		return err
	}
	tmp := fsutil.TempSibling(path)
	cw, err := cdf.OpenWriter(tmp)
	if err != nil {
		return fmt.Errorf("failed to create raster %s: %w", path, err)
	}

	gt := l.Transform.Six()
	attrs, err := util.NewOrderedMap(
		[]string{attrTransform, attrNoData},
		map[string]interface{}{
			attrTransform: gt[:],
			attrNoData:    l.NoData,
		})
	if err != nil {
		cw.Close()
		fsutil.Discard(tmp)
		return fmt.Errorf("failed to build raster attributes: %w", err)
	}

	v := api.Variable{
		Dimensions: []string{"y", "x"},
		Attributes: attrs,
	}
	if l.Kind == Int32 {
		rows := make([][]int32, l.Height)
		for r := 0; r < l.Height; r++ {
			rows[r] = l.Ints[r*l.Width : (r+1)*l.Width]
		}
		v.Values = rows
	} else {
		rows := make([][]float32, l.Height)
		for r := 0; r < l.Height; r++ {
			rows[r] = l.Floats[r*l.Width : (r+1)*l.Width]
		}
		v.Values = rows
	}

	if err := cw.AddVar(l.Name, v); err != nil {
		cw.Close()
		fsutil.Discard(tmp)
		return fmt.Errorf("failed to write raster variable %s: %w", l.Name, err)
	}
	if err := cw.Close(); err != nil {
		fsutil.Discard(tmp)
		return fmt.Errorf("failed to finalise raster %s: %w", path, err)
	}
	return fsutil.Promote(tmp, path)
}

// ReadLayer loads a single-band raster written by WriteLayer.
func ReadLayer(path string) (*Layer, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", path, err)
	}
	defer nc.Close()

	names := nc.ListVariables()
	if len(names) == 0 {
		return nil, fmt.Errorf("raster %s has no variables", path)
	}
	name := names[0]
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read variable %s from %s: %w", name, path, err)
	}

	gtVals, err := floatSliceAttr(v.Attributes, attrTransform)
	if err != nil || len(gtVals) != 6 {
		return nil, fmt.Errorf("raster %s missing %s attribute", path, attrTransform)
	}
	var six [6]float64
	copy(six[:], gtVals)
	tr, err := FromSix(six)
	if err != nil {
		return nil, fmt.Errorf("raster %s: %w", path, err)
	}
	nodata, err := floatAttr(v.Attributes, attrNoData)
	if err != nil {
		return nil, fmt.Errorf("raster %s missing %s attribute", path, attrNoData)
	}

	l := &Layer{Name: name, Transform: tr, NoData: nodata}
	switch rows := v.Values.(type) {
	case [][]int32:
		l.Kind = Int32
		l.Height = len(rows)
		if l.Height > 0 {
			l.Width = len(rows[0])
		}
		l.Ints = make([]int32, l.Width*l.Height)
		for r, row := range rows {
			copy(l.Ints[r*l.Width:], row)
		}
	case [][]float32:
		l.Kind = Float32
		l.Height = len(rows)
		if l.Height > 0 {
			l.Width = len(rows[0])
		}
		l.Floats = make([]float32, l.Width*l.Height)
		for r, row := range rows {
			copy(l.Floats[r*l.Width:], row)
		}
	default:
		return nil, fmt.Errorf("raster %s: unsupported element type %T", path, v.Values)
	}
	if l.Width == 0 || l.Height == 0 {
		return nil, fmt.Errorf("raster %s has a zero-sized grid", path)
	}
	return l, nil
}

// LoadDir reads every *.nc raster in dir, keyed by file stem. Any
// unreadable file fails the load; missing inputs are for the caller to
// judge.
func LoadDir(dir string) (map[string]*Layer, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.nc"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	layers := make(map[string]*Layer, len(paths))
	for _, p := range paths {
		stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		l, err := ReadLayer(p)
		if err != nil {
			return nil, err
		}
		l.Name = stem
		layers[stem] = l
		monitoring.Logf("loaded raster %s (%dx%d, %s)", stem, l.Width, l.Height, l.Kind)
	}
	return layers, nil
}

func floatAttr(am api.AttributeMap, key string) (float64, error) {
	if am == nil {
		return 0, fmt.Errorf("no attributes")
	}
	raw, ok := am.Get(key)
	if !ok {
		return 0, fmt.Errorf("attribute %s not found", key)
	}
	switch t := raw.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case []float64:
		if len(t) == 1 {
			return t[0], nil
		}
	case []float32:
		if len(t) == 1 {
			return float64(t[0]), nil
		}
	}
	return 0, fmt.Errorf("attribute %s has unexpected type %T", key, raw)
}

func floatSliceAttr(am api.AttributeMap, key string) ([]float64, error) {
	if am == nil {
		return nil, fmt.Errorf("no attributes")
	}
	raw, ok := am.Get(key)
	if !ok {
		return nil, fmt.Errorf("attribute %s not found", key)
	}
	switch t := raw.(type) {
	case []float64:
		return t, nil
	case []float32:
		out := make([]float64, len(t))
		for i, f := range t {
			out[i] = float64(f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("attribute %s has unexpected type %T", key, raw)
}
