package sqlinline

// usage_sessions is the opaque blob sink for the per-visitor tier/usage
// record. Writes are last-write-wins; a visitor session has one logical
// owner so no optimistic concurrency is needed.

const QSelectUsageRecord = `--sql 299a665e-2108-42d5-a1bd-fbf26b43cec9
select record
from usage_sessions
where session_id = $1::uuid
limit 1;
`

const QUpsertUsageRecord = `--sql 3ec2de42-d069-4e28-9830-93e2f467d7a8
insert into usage_sessions (session_id, record, created_at, updated_at)
values ($1::uuid, $2::jsonb, now(), now())
on conflict (session_id) do update set
    record = excluded.record,
    updated_at = now();
`
