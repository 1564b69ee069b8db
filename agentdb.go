// Package agentdb is a typed data-access layer for the voice agent
// marketplace schema on PostgreSQL, MySQL and SQLite.
//
// agentdb includes:
//   - A query builder with filters, relations, counts and aggregates
//   - Typed delegates per table (package client)
//   - Transactions, batches and raw SQL
//   - Schema push and drift detection
//
// Example usage:
//
//	import "github.com/carlosnayan/agentdb/client"
//
//	c, err := client.OpenFromConfig(ctx, "")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	agents, err := c.Agents.FindMany(ctx, builder.QueryOptions{
//	    Where: builder.Where{
//	        "is_active": true,
//	        "category":  builder.In("support", "sales"),
//	    },
//	    OrderBy: []builder.OrderBy{{Field: "rating", Order: "DESC"}},
//	    Take:    builder.Ptr(10),
//	})
//
// CLI Commands:
//
//	agentdb validate             # Check agentdb.conf and the model registry
//	agentdb schema               # Print the CREATE statements
//	agentdb db push              # Create missing tables and indexes
//	agentdb db status            # Report tables and columns missing from the database
//	agentdb db health            # Ping the database
//	agentdb db execute --file x  # Run a SQL script
package agentdb

const Version = "0.3.0"
