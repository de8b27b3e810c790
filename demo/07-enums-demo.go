//go:build ignore

// Enumerations with iota and String methods.
package main

import "fmt"

type Color int

const (
	Red Color = iota
	Green
	Blue
)

var colorNames = map[Color]string{
	Red:   "Red",
	Green: "Green",
	Blue:  "Blue",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

type Permission uint8

const (
	Read Permission = 1 << iota
	Write
	Execute
)

func (p Permission) Has(flag Permission) bool { return p&flag != 0 }

func main() {
	for c := Red; c <= Blue; c++ {
		fmt.Printf("%d = %v\n", c, c)
	}
	fmt.Println(Color(7))

	perm := Read | Write
	fmt.Println("read:", perm.Has(Read), "execute:", perm.Has(Execute))
}
