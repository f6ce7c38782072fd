package sprout_test

import (
	"fmt"
	"log"

	"github.com/junioryono/sprout"
)

type Clock struct{}

func NewClock() *Clock { return &Clock{} }

type Greeter struct {
	Clock *Clock
}

func NewGreeter(clock *Clock) *Greeter { return &Greeter{Clock: clock} }

func (g *Greeter) Greet(name string) string { return "Hello, " + name }

func (g *Greeter) Close() error {
	fmt.Println("greeter closed")
	return nil
}

type Banner struct {
	Text string
}

type AppConfig struct{}

func (*AppConfig) Banner() *Banner { return &Banner{Text: "sprout"} }

var (
	_ = sprout.Annotate(NewClock, sprout.Component{})
	_ = sprout.Annotate(NewGreeter, sprout.Component{})
	_ = sprout.Annotate((*AppConfig)(nil), sprout.Configuration{})
	_ = sprout.Annotate(sprout.Method[*AppConfig]("Banner"), sprout.Bean{Name: "banner"})
)

func Example() {
	ctx, err := sprout.New()
	if err != nil {
		log.Fatal(err)
	}

	if err := ctx.Scan("github.com/junioryono/sprout_test"); err != nil {
		log.Fatal(err)
	}
	if err := ctx.Refresh(); err != nil {
		log.Fatal(err)
	}

	greeter, err := sprout.GetBeanOfType[*Greeter](ctx)
	if err != nil {
		log.Fatal(err)
	}
	banner := sprout.MustGetBean[*Banner](ctx, "banner")

	fmt.Println(greeter.Greet(banner.Text))
	fmt.Println(ctx.GetBeanDefinitionNames())

	_ = ctx.Close()

	// Output:
	// Hello, sprout
	// [clock greeter appConfig banner]
	// greeter closed
}

func ExampleListener() {
	ctx, err := sprout.New(sprout.WithAnnotationStore(sprout.NewAnnotationStore()))
	if err != nil {
		log.Fatal(err)
	}

	_ = ctx.AddApplicationListener(sprout.Listener(func(e sprout.ContextRefreshedEvent) {
		fmt.Println("refreshed:", e.Context.State())
	}))
	_ = ctx.AddApplicationListener(sprout.Listener(func(e sprout.ContextClosedEvent) {
		fmt.Println("closing:", e.Context.State())
	}))

	if err := ctx.Refresh(); err != nil {
		log.Fatal(err)
	}
	_ = ctx.Close()
	fmt.Println("state:", ctx.State())

	// Output:
	// refreshed: new
	// closing: refreshed
	// state: closed
}

func ExampleBeanContext_Invoke() {
	ctx, err := sprout.New(sprout.WithAnnotationStore(sprout.NewAnnotationStore()))
	if err != nil {
		log.Fatal(err)
	}
	defer ctx.Close()

	if err := ctx.Register(NewClock, NewGreeter); err != nil {
		log.Fatal(err)
	}
	if err := ctx.Refresh(); err != nil {
		log.Fatal(err)
	}

	err = ctx.Invoke(func(g *Greeter) {
		fmt.Println(g.Greet("dig"))
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output:
	// Hello, dig
	// greeter closed
}
