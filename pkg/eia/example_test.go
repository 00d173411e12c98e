package eia_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/eiadata/go-client/pkg/eia"
	"github.com/eiadata/go-client/pkg/table"
)

func ExampleNewAPI() {
	ctx := context.TODO()

	// Create API, the key can also come from the EIA_API_KEY environment variable
	api, err := eia.NewAPI(eia.WithAPIKey("<my-key>"))
	if err != nil {
		log.Fatal(err)
	}

	// Load series
	records, err := api.Series("ELEC.GEN.ALL-AK-99.A", "ELEC.GEN.ALL-HI-99.A").List(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%#v", records)
}

func ExampleSeriesQuery_Table() {
	ctx := context.TODO()

	api, err := eia.NewAPI(eia.WithAPIKey("<my-key>"))
	if err != nil {
		log.Fatal(err)
	}

	// Load observations to a table, each row with the metadata of its series
	tbl, err := api.Series("ELEC.GEN.ALL-AK-99.A").WithNum(10).Table(ctx)
	if err != nil {
		log.Fatal(err)
	}

	if err := tbl.WriteCSV(os.Stdout, table.Params{}); err != nil {
		log.Fatal(err)
	}
}

func ExampleCategoryQuery_List() {
	ctx := context.TODO()

	api, err := eia.NewAPI(eia.WithAPIKey("<my-key>"))
	if err != nil {
		log.Fatal(err)
	}

	// List the root of the category tree
	children, err := api.Category("").List(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%#v", children)
}
