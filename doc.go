// Package sprout provides an annotation-driven bean container for Go applications.
// Components declare themselves with annotations; the container discovers them,
// wires their dependencies by type and name, and manages their lifecycle.
//
// # Overview
//
// sprout keeps the familiar bean-container model:
//   - Components and configuration classes discovered by package
//   - Constructor, factory method, struct field and setter injection
//   - Singleton beans created eagerly on refresh and destroyed on close
//   - Post-processors at every stage of bean creation
//   - Conditional registration driven by properties and existing beans
//   - Synchronous lifecycle events
//
// # Annotations
//
// Go has no decorators, so annotations are ordinary values attached to a
// source in an annotation store, usually at package level:
//
//	func NewUserRepository(db *sql.DB) *UserRepository { ... }
//
//	var _ = sprout.Annotate(NewUserRepository, sprout.Component{})
//
// Sources are identified by import path and name, so the store works for
// functions, struct types and methods alike:
//
//	var _ = sprout.Annotate((*AppConfig)(nil), sprout.Configuration{})
//	var _ = sprout.Annotate(sprout.Method[*AppConfig]("DataSource"), sprout.Bean{Name: "db"})
//
// # Basic Usage
//
// Create a context, scan or register sources, refresh, and look up beans:
//
//	ctx, err := sprout.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	if err := ctx.Scan("github.com/acme/app/..."); err != nil {
//	    log.Fatal(err)
//	}
//	if err := ctx.Refresh(); err != nil {
//	    log.Fatal(err)
//	}
//
//	repo, err := sprout.GetBeanOfType[*UserRepository](ctx)
//
// # Bean Names
//
// A bean is named by the Name of its annotation, or after its source:
// NewUserRepository and UserRepository both give "userRepository", and a Bean
// method DataSource gives "dataSource".
//
// # Dependency Injection
//
// Constructor and factory method parameters are resolved in order. A
// parameter first looks for the bean named after it, then for the single
// bean of its type; when several beans match, the one named after the
// parameter wins. Go does not expose parameter names, so a parameter is named
// after its type unless an Inject annotation names it:
//
//	var _ = sprout.Annotate(NewReportService,
//	    sprout.Component{},
//	    sprout.Inject{Params: []sprout.Param{
//	        {Name: "primaryDB"},
//	        {Name: "mailer", Optional: true},
//	    }})
//
// Slice, set (map[T]struct{}) and map[string]T parameters receive every bean
// of the element type.
//
// Struct sources are allocated by the container and their `inject` tagged
// fields resolved the same way:
//
//	type OrderService struct {
//	    Repo    *OrderRepository `inject:""`
//	    Metrics Metrics          `inject:"metrics,optional"`
//	}
//
// # Lifecycle
//
// A bean may implement BeanNameAware, BeanFactoryAware, InitializingBean,
// SmartInitializingSingleton and Disposable to take part in its lifecycle.
// Disposable singletons are closed when the context closes, dependents first.
//
// # Error Handling
//
// Failures are reported as typed errors such as NoSuchBeanDefinitionError,
// NoUniqueBeanDefinitionError and BeanCurrentlyInCreationError, usually
// wrapped in a BeanCreationError. Use errors.As to inspect them:
//
//	var cycle sprout.BeanCurrentlyInCreationError
//	if errors.As(err, &cycle) {
//	    log.Printf("cycle: %v", cycle.Chain)
//	}
package sprout
