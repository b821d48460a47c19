package sqlinline

const QInsertUsageEvent = `--sql 8a347dd0-6b7e-4443-b658-8c2ccc92c194
insert into usage_events (id, session_id, user_id, event_type, success, created_at, properties)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::text, $4::boolean, now(), coalesce($5::jsonb, '{}'::jsonb));
`

const QUsageEventStats = `--sql a90bcbaf-ebea-444c-89bc-a68216c0bb4f
select event_type, count(*), count(*) filter (where success)
from usage_events
where created_at >= now() - interval '24 hours'
group by event_type;
`
