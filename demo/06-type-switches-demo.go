//go:build ignore

// Type switches and assertions, the Go way to narrow a value.
package main

import "fmt"

type Fish struct{}

func (Fish) Swim() string { return "swimming" }

type Bird struct{}

func (Bird) Fly() string { return "flying" }

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case int:
		return fmt.Sprintf("int %d", x)
	case string:
		return fmt.Sprintf("string of length %d", len(x))
	case Fish:
		return "fish " + x.Swim()
	case Bird:
		return "bird " + x.Fly()
	case error:
		return "error " + x.Error()
	default:
		return fmt.Sprintf("unknown %T", x)
	}
}

func main() {
	for _, v := range []any{42, "hello", Fish{}, Bird{}, fmt.Errorf("oops"), 3.14, nil} {
		fmt.Println(describe(v))
	}

	var v any = "text"
	if s, ok := v.(string); ok {
		fmt.Println("asserted:", s)
	}
	if _, ok := v.(int); !ok {
		fmt.Println("not an int")
	}
}
