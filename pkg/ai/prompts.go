package ai

// ExtractStatementsPrompt is the fixed instruction contract for pulling
// calendar-anchored statements out of a case document. The first %s slot
// receives the JSON schema of a single statement object; the document text
// is appended by the caller after the TEXT marker.
const ExtractStatementsPrompt = `
# Task Context
You are a forensic and financial analyst. From the TEXT section below, extract
every explicit or strongly implied calendar reference and produce a JSON list.

# Output Object
Each JSON object must have exactly these keys (case-sensitive), conforming to
this schema:
%s

1. "Date" - normalise to ISO:
   - Day-month-year -> YYYY-MM-DD
   - Month-year     -> first day of that month (YYYY-MM-01)
   - Quarter-year   -> first day of the quarter (Q3 2024 -> 2024-07-01)
   - Year-only      -> YYYY-01-01

2. "Statement" - the single bullet or sentence that states the incident for
   that date. If a bullet contains several dates, duplicate the bullet so each
   object has one date. Preserve original wording, punctuation and
   capitalisation.

3. "Entities" - distinct people, organisations, locations or products
   mentioned in that statement, lower-case, alphabetically ordered, separated
   by "; ". Do not include dates, numbers or job titles. Ignore generic words
   (e.g. "company", "group", "co-operative").

4. "EntityTypes" - a list of entity types corresponding to each entity in
   "Entities". Possible values: "person", "organization", "place", "product",
   "other".

5. "Relations" - for each entity pair in the statement, extract an explicit or
   inferred relationship using best judgment based on context. Each relation
   is an object with "Subject" (entity name), "Predicate" (relationship verb
   or relational phrase in lower-case snake_case) and "Object" (entity name or
   year). If a relation is clearly not present for a pair, skip that pair.

6. "Category" - exactly one of:
   Business Activity | Biography | Legal | Governance | Financial Reporting | Event | Other
   (If no bucket is an obvious fit, use "Other".)

# Rules
- If no entities are found in a statement, skip that statement entirely.
- Do not include duplicate JSON objects.
- Treat each list item, headline or bullet as a potential sentence.
- If the input text contains no qualifying statements, return an empty list [].

# Output Formatting
Return only the JSON list, with no surrounding text, markdown or comments.

TEXT ->
`
