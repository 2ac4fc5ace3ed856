package ecs

type factory struct{}

var Factory factory

func (f factory) NewWorld(opts ...Option) *World {
	return newWorld(opts...)
}

func (f factory) NewQuery() *Query {
	return newQuery()
}

func (f factory) NewCursor(query *Query, world *World) *Cursor {
	return newCursor(query, world)
}

func (f factory) NewScheduler(world *World) *Scheduler {
	return newScheduler(world)
}

// FactoryNewComponent registers T with w and panics on failure. It suits
// setup code where a registration error is a programming error.
func FactoryNewComponent[T any](w *World) ComponentType[T] {
	c, err := RegisterComponent[T](w)
	if err != nil {
		panic(err)
	}
	return c
}

func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
