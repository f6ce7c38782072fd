package sprout

// Capability interfaces a bean may implement. The factory checks for them
// while creating, initializing and destroying beans; all are optional.

// BeanNameAware beans receive their bean name after construction.
type BeanNameAware interface {
	SetBeanName(name string)
}

// BeanFactoryAware beans receive the owning factory after construction.
// Post-processors implementing it receive the factory when they are added.
type BeanFactoryAware interface {
	SetBeanFactory(factory *BeanFactory)
}

// InitializingBean beans are called once their dependencies are injected and
// the before-initialization post-processors have run.
type InitializingBean interface {
	AfterPropertiesSet() error
}

// SmartInitializingSingleton singletons are called once at the end of a
// refresh, after every eager singleton has been created.
type SmartInitializingSingleton interface {
	AfterSingletonsInstantiated() error
}

// Disposable singletons are closed when they are destroyed, normally when the
// context is closed.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}
