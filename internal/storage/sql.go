package storage

import (
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/pop/v6/columns"
	"github.com/pkg/errors"
)

// UpdateOnly writes just the named columns of model.
func (conn *Connection) UpdateOnly(model interface{}, includeColumns ...string) error {
	if _, err := getExcludedColumns(model, includeColumns...); err != nil {
		return err
	}
	return conn.UpdateColumns(model, includeColumns...)
}

func getExcludedColumns(model interface{}, includeColumns ...string) ([]string, error) {
	sm := &pop.Model{Value: model}

	// get all columns and remove included to get excluded set
	cols := columns.ForStructWithAlias(model, sm.TableName(), sm.As, sm.IDField())
	for _, f := range includeColumns {
		if _, ok := cols.Cols[f]; !ok {
			return nil, errors.Errorf("Invalid column name %s", f)
		}
		cols.Remove(f)
	}

	xcols := make([]string, 0, len(cols.Cols))
	for n := range cols.Cols {
		xcols = append(xcols, n)
	}
	return xcols, nil
}
