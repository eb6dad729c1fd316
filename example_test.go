package solsim_test

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/solsim"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/ports"
)

func Example() {
	growth := ports.StepFunc{
		Initial: func() (domain.State, error) {
			return domain.State{"population": 100, "scratch": true}, nil
		},
		Next: func(state domain.State, history domain.History) (domain.State, error) {
			return domain.State{"population": state["population"].(int) * 2}, nil
		},
	}

	sim := solsim.New(growth, []string{"population"})
	table, err := sim.Run(context.Background(), 2, 3, false)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	_ = table.WriteCSV(os.Stdout)
	// Output:
	// run,step,population
	// 0,0,100
	// 0,1,200
	// 0,2,400
	// 1,0,100
	// 1,1,200
	// 1,2,400
}

func ExampleSimulation_Filter() {
	sim := solsim.New(ports.StepFunc{}, []string{"balance"})

	rec, err := sim.Filter(domain.State{"run": 0, "step": 4, "balance": 12.5, "slot": 99})
	fmt.Println(rec, err)
	// Output: map[balance:12.5 run:0 step:4] <nil>
}
