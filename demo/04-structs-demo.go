//go:build ignore

// Structs: embedding, methods, pointer receivers, tags.
package main

import (
	"encoding/json"
	"fmt"
)

type Address struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type Person struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Email   string `json:"email,omitempty"`
	Address `json:"address"`
}

func (p *Person) Birthday() { p.Age++ }

func (p Person) String() string {
	return fmt.Sprintf("%s (%d) from %s", p.Name, p.Age, p.City)
}

func main() {
	p := Person{Name: "Ada", Age: 36, Address: Address{City: "London", Country: "UK"}}
	p.Birthday()
	fmt.Println(p)

	b, _ := json.Marshal(p)
	fmt.Println(string(b))

	anon := struct {
		X, Y int
	}{1, 2}
	fmt.Printf("%+v\n", anon)
}
