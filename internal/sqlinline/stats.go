package sqlinline

const QProjectCountsByStatus = `--sql 04733495-bee2-4b45-96fd-8ad5a3554170
select status, count(*)
from projects
where user_id = $1::uuid
group by status;
`

const QInsertUsageEvent = `--sql 4f29e63d-49d4-40fe-ae67-33280ca9372b
insert into usage_events(id, user_id, project_id, event_type, success, created_at, properties)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::text, $4::boolean, now(), coalesce($5::jsonb, '{}'::jsonb));
`
