package mcp

import "github.com/mark3labs/mcp-go/mcp"

var refreshToolDef = mcp.NewTool("country_refresh",
	mcp.WithDescription("Fetch countries and USD exchange rates from the upstream APIs and upsert every country in one transaction. "+
		"Returns processed and error counts. Nothing is written if either upstream is unavailable."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(true),
)

var listToolDef = mcp.NewTool("country_list",
	mcp.WithDescription("List cached countries, ordered by name unless sort is gdp_desc."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("region", mcp.Description("Exact region filter, e.g. Africa")),
	mcp.WithString("currency", mcp.Description("Currency code filter, case-insensitive, e.g. NGN")),
	mcp.WithString("sort", mcp.Description("Sort order"), mcp.Enum("gdp_desc")),
)

var getToolDef = mcp.NewTool("country_get",
	mcp.WithDescription("Get one cached country by name (case-insensitive)."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("Country name")),
)

var deleteToolDef = mcp.NewTool("country_delete",
	mcp.WithDescription("Delete one cached country by name (case-insensitive). The next refresh re-creates it."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("Country name")),
)

var statusToolDef = mcp.NewTool("country_status",
	mcp.WithDescription("Report the cached country count, the last refresh time, and the summary image path if one exists."),
	mcp.WithReadOnlyHintAnnotation(true),
)
