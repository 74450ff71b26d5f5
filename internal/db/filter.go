package db

import "go.mongodb.org/mongo-driver/bson"

// FilterBuilder assembles a bson.M query one condition at a time. A later condition on
// the same field replaces the earlier one.
type FilterBuilder struct {
	filter bson.M
}

func NewFilter() *FilterBuilder {
	return &FilterBuilder{filter: bson.M{}}
}

func (f *FilterBuilder) Eq(field string, value any) *FilterBuilder {
	f.filter[field] = value
	return f
}

// Ne on an array field matches documents where no element equals value.
func (f *FilterBuilder) Ne(field string, value any) *FilterBuilder {
	f.filter[field] = bson.M{"$ne": value}
	return f
}

func (f *FilterBuilder) In(field string, values any) *FilterBuilder {
	f.filter[field] = bson.M{"$in": values}
	return f
}

// Or is a no-op without alternatives.
func (f *FilterBuilder) Or(alternatives ...bson.M) *FilterBuilder {
	if len(alternatives) > 0 {
		f.filter["$or"] = alternatives
	}
	return f
}

func (f *FilterBuilder) Build() bson.M {
	return f.filter
}
