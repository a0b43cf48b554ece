// Package peano provides a parallel Entity Component System runtime.
//
// Peano stores typed components on integer-identified entities, keeps
// world-global resources, maintains secondary indices (mappings) over the
// entities, and runs systems in parallel waves whose declared footprints do
// not conflict.
//
// # Quick Start
//
// Register component and resource types before creating a world:
//
//	func init() {
//	    peano.RegisterComponent[Position]()
//	    peano.RegisterComponent[Velocity]()
//	    peano.RegisterResource[Clock]()
//	}
//
// Build a world from bundles:
//
//	physics := peano.NewBundle("physics").
//	    System(&Movement{}, peano.Update).
//	    Mapping(peano.NewTableMapping())
//
//	world, err := peano.NewBuilder(peano.WithWorkers(4)).
//	    Bundle(physics.Build()).
//	    Init()
//
//	e := world.Spawn()
//	peano.Add(e, &Position{})
//	peano.Add(e, &Velocity{X: 1, Y: 1})
//	world.Tick()
//
// # Registry
//
// Each component and resource type gets a dense uint8 id. Ids are assigned
// once, when the registry is finalized, in name order, so the assignment does
// not depend on init order. Registering after finalization, or looking up an
// unregistered type, panics.
//
// # Systems
//
// Systems declare what they touch, either with phantom fields:
//
//	type Movement struct {
//	    _ peano.Writes[Position]
//	    _ peano.Reads[Velocity]
//	    _ peano.ReadsMap[*peano.TableMapping]
//	}
//
//	func (m *Movement) Run(c *peano.Context) {
//	    movers, _ := peano.TableQuery(
//	        peano.ComponentIDOf[Position](),
//	        peano.ComponentIDOf[Velocity](),
//	    ).RunIn(c)
//	    for _, e := range movers {
//	        p, v := peano.Mut[Position](c, e), peano.View[Velocity](c, e)
//	        p.X, p.Y = p.X+v.X, p.Y+v.Y
//	    }
//	}
//
// or by implementing Footprinter. Two systems conflict if one writes
// something the other reads or writes; conflicting systems never share a
// wave.
//
// # Access validation
//
// A footprint that understates what a system touches is a data race the
// scheduler can not see. WithAccessCheck makes the Context accessors compare
// every access against the footprint and log or panic on mismatches.
package peano

// Version is the peano version.
const Version = "0.1.0"
