// Package payload reads solve requests from JSON and shapes the replies.
package payload

import (
	"math"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/xtding233/honing-forecast/internal/honing"
)

// Mode selects which question a request asks.
type Mode string

const (
	CostToChance Mode = "cost_to_chance"
	ChanceToCost Mode = "chance_to_cost"
	Histogram    Mode = "histogram"
)

// DefaultStrategy is used when adv_hone_strategy is omitted.
const DefaultStrategy = "No juice"

// Request is one parsed solve payload.
type Request struct {
	NormalTicks   [][]bool
	AdvTicks      [][]bool
	Budget        honing.Costs
	DesiredChance float64
	Strategy      string
	Mode          Mode

	// optional; nil keeps the configured value
	Seed    *uint64
	MaxIter *int
	Profile string
	// strategy to simulate in histogram mode; nil means no skips
	Skips []int
}

func shapeErr(format string, args ...interface{}) error {
	return errors.Wrapf(honing.ErrInputShape, format, args...)
}

// Parse decodes data into a Request. Any structural problem is reported as
// honing.ErrInputShape.
func Parse(data []byte) (Request, error) {
	if !gjson.ValidBytes(data) {
		return Request{}, shapeErr("payload is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Request{}, shapeErr("payload must be an object")
	}

	var (
		req Request
		err error
	)
	if req.NormalTicks, err = ticks(root.Get("normal_hone_ticks"), "normal_hone_ticks"); err != nil {
		return Request{}, err
	}
	if req.AdvTicks, err = ticks(root.Get("adv_hone_ticks"), "adv_hone_ticks"); err != nil {
		return Request{}, err
	}
	if req.Budget, err = budget(root.Get("budget")); err != nil {
		return Request{}, err
	}

	if v := root.Get("desired_chance"); v.Exists() {
		if v.Type != gjson.Number {
			return Request{}, shapeErr("desired_chance must be a number")
		}
		req.DesiredChance = v.Float()
		if math.IsNaN(req.DesiredChance) || req.DesiredChance < 0 || req.DesiredChance > 1 {
			return Request{}, shapeErr("desired_chance %v outside [0,1]", req.DesiredChance)
		}
	}

	req.Strategy = DefaultStrategy
	if v := root.Get("adv_hone_strategy"); v.Exists() {
		if v.Type != gjson.String {
			return Request{}, shapeErr("adv_hone_strategy must be a string")
		}
		req.Strategy = v.String()
	}

	req.Mode = CostToChance
	if v := root.Get("mode"); v.Exists() {
		switch m := Mode(v.String()); m {
		case CostToChance, ChanceToCost, Histogram:
			req.Mode = m
		default:
			return Request{}, shapeErr("unknown mode %q", v.String())
		}
	}

	if v := root.Get("seed"); v.Exists() {
		if v.Type != gjson.Number || v.Float() < 0 || v.Float() != math.Trunc(v.Float()) {
			return Request{}, shapeErr("seed must be a non-negative integer")
		}
		s := v.Uint()
		req.Seed = &s
	}
	if v := root.Get("max_iter"); v.Exists() {
		if v.Type != gjson.Number || v.Int() <= 0 {
			return Request{}, shapeErr("max_iter must be a positive integer")
		}
		n := int(v.Int())
		req.MaxIter = &n
	}
	if v := root.Get("profile"); v.Exists() {
		req.Profile = v.String()
	}
	if v := root.Get("skips"); v.Exists() && v.Type != gjson.Null {
		if !v.IsArray() {
			return Request{}, shapeErr("skips must be an array")
		}
		for i, x := range v.Array() {
			if x.Type != gjson.Number || x.Int() < 0 || x.Float() != math.Trunc(x.Float()) {
				return Request{}, shapeErr("skips[%d] must be a non-negative integer", i)
			}
			req.Skips = append(req.Skips, int(x.Int()))
		}
	}
	return req, nil
}

// ticks reads a rectangular boolean matrix. A missing field is empty.
func ticks(v gjson.Result, field string) ([][]bool, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, shapeErr("%s must be an array of arrays", field)
	}
	var (
		out  [][]bool
		cols = -1
		err  error
	)
	v.ForEach(func(_, row gjson.Result) bool {
		if !row.IsArray() {
			err = shapeErr("%s[%d] must be an array", field, len(out))
			return false
		}
		var r []bool
		row.ForEach(func(_, cell gjson.Result) bool {
			switch cell.Type {
			case gjson.True:
				r = append(r, true)
			case gjson.False:
				r = append(r, false)
			default:
				err = shapeErr("%s[%d][%d] must be a boolean", field, len(out), len(r))
				return false
			}
			return true
		})
		if err != nil {
			return false
		}
		if cols >= 0 && len(r) != cols {
			err = shapeErr("%s row %d has %d columns, row 0 has %d", field, len(out), len(r), cols)
			return false
		}
		cols = len(r)
		out = append(out, r)
		return true
	})
	return out, err
}

// budget reads up to NumResources non-negative integers; missing trailing
// entries are zero.
func budget(v gjson.Result) (honing.Costs, error) {
	var c honing.Costs
	if !v.Exists() || v.Type == gjson.Null {
		return c, nil
	}
	if !v.IsArray() {
		return c, shapeErr("budget must be an array")
	}
	arr := v.Array()
	if len(arr) > honing.NumResources {
		return c, shapeErr("budget has %d entries, max %d", len(arr), honing.NumResources)
	}
	for i, x := range arr {
		f := x.Float()
		if x.Type != gjson.Number || f < 0 || f != math.Trunc(f) || f > math.MaxInt64/2 {
			return c, shapeErr("budget[%d] must be a non-negative integer", i)
		}
		c[i] = x.Int()
	}
	return c, nil
}
