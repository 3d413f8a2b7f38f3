package repository

// ListOptions is shared pagination for list queries.
type ListOptions struct {
	Skip int
	Take int
}

func (o ListOptions) normalize() (int, int) {
	skip, take := o.Skip, o.Take
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = 10
	}
	return skip, take
}
