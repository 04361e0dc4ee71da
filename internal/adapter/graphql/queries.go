package graphql

import (
	"fmt"
	"time"
)

const reportFields = `
      id
      eventType
      measurement { magnitude unit }
      beginTime
      location { raw name state county }
      geo { lat lon }
      sourceOffice
      comments`

func batchQuery(from, to time.Time, limit, offset int) string {
	return fmt.Sprintf(`{
  stormReports(filter: {
    timeRange: { from: %q, to: %q }
    sortBy: BEGIN_TIME
    sortOrder: ASC
    limit: %d
    offset: %d
  }) {
    totalCount
    hasMore
    reports {%s
    }
    meta { lastUpdated dataLagMinutes }
  }
}`, from.Format(time.RFC3339), to.Format(time.RFC3339), limit, offset, reportFields)
}

const latestQuery = `{
  stormReports(filter: {
    timeRange: { from: "1970-01-01T00:00:00Z", to: "2100-01-01T00:00:00Z" }
    sortBy: BEGIN_TIME
    sortOrder: DESC
    limit: 1
  }) {
    reports { beginTime }
  }
}`
